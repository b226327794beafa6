package graph

import (
	"errors"
	"time"
)

type Recipient struct {
	Address string
	Name    string
}

type Mail struct {
	Subject string
	HTML    string
	To      []Recipient
	CC      []Recipient
}

type Event struct {
	Subject   string
	HTML      string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Location  string
	Attendees []Recipient
}

type CreatedEvent struct {
	ID      string `json:"id"`
	WebLink string `json:"webLink"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type message struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
	CcRecipients []recipient `json:"ccRecipients,omitempty"`
}

type sendMailRequest struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type location struct {
	DisplayName string `json:"displayName"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

type eventRequest struct {
	Subject   string           `json:"subject"`
	Body      itemBody         `json:"body"`
	Start     dateTimeTimeZone `json:"start"`
	End       dateTimeTimeZone `json:"end"`
	IsAllDay  bool             `json:"isAllDay"`
	Location  *location        `json:"location,omitempty"`
	Attendees []attendee       `json:"attendees,omitempty"`
}

func recipients(rs []Recipient) []recipient {
	if len(rs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(rs))
	for _, r := range rs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: r.Address, Name: r.Name}})
	}
	return out
}

func (m Mail) message() message {
	return message{
		Subject:      m.Subject,
		Body:         itemBody{ContentType: "HTML", Content: m.HTML},
		ToRecipients: recipients(m.To),
		CcRecipients: recipients(m.CC),
	}
}

const graphDateTime = "2006-01-02T15:04:05"

func (e Event) request() (eventRequest, error) {
	start, end := e.Start.UTC(), e.End.UTC()
	if e.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}
	if e.Subject == "" {
		return eventRequest{}, errors.New("event subject is required")
	}
	if !start.Before(end) {
		return eventRequest{}, errors.New("event start must be before end")
	}
	req := eventRequest{
		Subject:  e.Subject,
		Body:     itemBody{ContentType: "HTML", Content: e.HTML},
		Start:    dateTimeTimeZone{DateTime: start.Format(graphDateTime), TimeZone: "UTC"},
		End:      dateTimeTimeZone{DateTime: end.Format(graphDateTime), TimeZone: "UTC"},
		IsAllDay: e.AllDay,
	}
	if e.Location != "" {
		req.Location = &location{DisplayName: e.Location}
	}
	for _, a := range e.Attendees {
		req.Attendees = append(req.Attendees, attendee{
			EmailAddress: emailAddress{Address: a.Address, Name: a.Name},
			Type:         "required",
		})
	}
	return req, nil
}
