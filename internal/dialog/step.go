package dialog

// Step is the position of a chat inside a multi-message conversation.
// The set of steps is closed: only this package can add variants.
type Step interface {
	step()
}

// FullName waits for the registrant's full name.
type FullName struct{}

// Phone waits for the phone number.
type Phone struct {
	FullName string
}

// Attempt waits for the attempt number; a valid answer submits the registration.
type Attempt struct {
	FullName string
	Phone    string
}

// SetExam waits for the exam date and time. Administrator only.
type SetExam struct{}

// InviteByID waits for a comma-separated id list to invite. Administrator only.
type InviteByID struct{}

// DeleteByID waits for a comma-separated id list to delete. Administrator only.
type DeleteByID struct{}

func (FullName) step() {}
func (Phone) step() {}
func (Attempt) step() {}
func (SetExam) step() {}
func (InviteByID) step() {}
func (DeleteByID) step() {}

func adminStep(s Step) bool {
	switch s.(type) {
	case SetExam, InviteByID, DeleteByID:
		return true
	}
	return false
}
