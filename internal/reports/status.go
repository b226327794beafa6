package reports

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var validNext = map[Status]map[Status]bool{
	StatusOpen:       {StatusInProgress: true, StatusResolved: true, StatusClosed: true},
	StatusInProgress: {StatusOpen: true, StatusResolved: true, StatusClosed: true},
	StatusResolved:   {StatusInProgress: true, StatusClosed: true},
	StatusClosed:     {StatusOpen: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Active reports still need attention.
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}
