package invite

import (
	"fmt"
	"time"
)

// Genitive month names, as used in "1 марта".
var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatExamTime renders t in loc as "01 марта 2025 года в 10:00".
func FormatExamTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return fmt.Sprintf("%02d %s %d года в %02d:%02d", t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// InvitationText is the message a registrant receives.
func InvitationText(fullName, when string) string {
	return fmt.Sprintf("Приглашение на экзамен:\n\nФИО: %s\nДата и время: %s\nПожалуйста, приходите за 10 минут до начала.", fullName, when)
}

// AcceptedText replaces the invitation once the registrant confirmed it.
func AcceptedText(fullName, when string) string {
	return fmt.Sprintf("Приглашение на экзамен:\n\nФИО: %s\nДата и время: %s\nСтатус: Приглашение принято", fullName, when)
}
