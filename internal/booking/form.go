package booking

import (
	"fmt"
	"strings"
	"time"

	"slotbook/internal/clock"
	"slotbook/internal/model"
)

// Contact is the customer's contact details.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Complete reports whether name and phone are present. Email is optional.
func (c Contact) Complete() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Phone) != ""
}

// SplitName uses the first word as first name and the rest as last name.
// A single word is used for both.
func (c Contact) SplitName() (first, last string) {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return "", ""
	}
	first = fields[0]
	last = strings.Join(fields[1:], " ")
	if last == "" {
		last = strings.Join(fields, " ")
	}
	return first, last
}

// Form is the data collected by the wizard.
type Form struct {
	ServiceCategory string   `json:"service_category"`
	ServiceIDs      []string `json:"service_ids"`
	WorkerID        string   `json:"worker_id"`
	Date            string   `json:"date"` // YYYY-MM-DD
	Time            string   `json:"time"` // HH:MM
	Contact         Contact  `json:"contact"`
}

// NewForm starts with no worker preference, as the booking page does.
func NewForm() Form {
	return Form{WorkerID: model.NoPreference}
}

// SelectCategory changes the category and clears choices that depend on it.
func (f *Form) SelectCategory(category string) {
	if f.ServiceCategory == category {
		return
	}
	f.ServiceCategory = category
	f.ServiceIDs = nil
	f.WorkerID = model.NoPreference
}

// ToggleService adds or removes a sub-service, keeping selection order.
func (f *Form) ToggleService(id string) {
	for i, s := range f.ServiceIDs {
		if s == id {
			f.ServiceIDs = append(f.ServiceIDs[:i], f.ServiceIDs[i+1:]...)
			return
		}
	}
	f.ServiceIDs = append(f.ServiceIDs, id)
}

// Apply merges a patch into the form. A category change resets dependent fields.
func (f *Form) Apply(patch Form) {
	if patch.ServiceCategory != "" {
		f.SelectCategory(patch.ServiceCategory)
	}
	if patch.ServiceIDs != nil {
		f.ServiceIDs = append([]string(nil), patch.ServiceIDs...)
	}
	if patch.WorkerID != "" {
		f.WorkerID = patch.WorkerID
	}
	if patch.Date != "" {
		f.Date = patch.Date
	}
	if patch.Time != "" {
		f.Time = patch.Time
	}
	if patch.Contact.Name != "" {
		f.Contact.Name = patch.Contact.Name
	}
	if patch.Contact.Email != "" {
		f.Contact.Email = patch.Contact.Email
	}
	if patch.Contact.Phone != "" {
		f.Contact.Phone = patch.Contact.Phone
	}
}

// StaffID returns nil for no preference.
func (f Form) StaffID() *string {
	if f.WorkerID == "" || f.WorkerID == model.NoPreference {
		return nil
	}
	id := f.WorkerID
	return &id
}

// StartTime resolves Date and Time in the business location.
func (f Form) StartTime(loc *time.Location) (time.Time, error) {
	day, err := clock.ParseDate(f.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, err := clock.ParseClock(f.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time: %w", err)
	}
	return c.On(day, loc), nil
}
