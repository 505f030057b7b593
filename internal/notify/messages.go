package notify

import (
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/task"
	"fmt"
)

const appName = "E-Office Task Manager"

const deadlineLayout = "2006-01-02"

func formatDeadline(t *task.Task) string {
	if t.Deadline == nil {
		return "не задан"
	}
	return t.Deadline.Format(deadlineLayout)
}

// render собирает сообщения по событию. Каналы без адреса пропускаются.
func render(ev events.Event, t *task.Task, assignee *actor.Actor) []Message {
	var (
		subject, email, sms string
	)

	switch ev.Kind {
	case events.KindTaskAssigned:
		subject = fmt.Sprintf("New Task Assigned: %s", t.Title)
		email = fmt.Sprintf("You have been assigned a new task:\n\nTitle: %s\nDescription: %s\nDeadline: %s\n\nPlease check the %s for details.",
			t.Title, t.Description, formatDeadline(t), appName)
		sms = fmt.Sprintf("New Task: %s. Deadline: %s. Check %s.", t.Title, formatDeadline(t), appName)
	case events.KindDeadlineApproaching:
		subject = fmt.Sprintf("Reminder: Task %q Due Soon", t.Title)
		email = fmt.Sprintf("The task %q is due on %s. Please complete it soon.\nDescription: %s",
			t.Title, formatDeadline(t), t.Description)
		sms = fmt.Sprintf("Reminder: Task %q due on %s. Check %s.", t.Title, formatDeadline(t), appName)
	default:
		return nil
	}

	msgs := []Message{}
	if assignee.Email != "" {
		msgs = append(msgs, Message{Channel: ChannelEmail, To: assignee.Email, Subject: subject, Body: email})
	}
	if phone := assignee.PhoneNumber(); phone != "" {
		msgs = append(msgs, Message{Channel: ChannelSMS, To: phone, Body: sms})
	}
	return msgs
}
