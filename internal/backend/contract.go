// Package backend reads company snapshots from the business database and runs the
// booking writes against it.
package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/model"
)

// CompanyData is the result of get_company_details_by_identifier.
type CompanyData struct {
	Company Company `json:"company"`
	Staff   []Staff `json:"staff"`
}

type Company struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Identifier          string           `json:"identifier"`
	Timezone            string           `json:"timezone,omitempty"`
	Logo                *Image           `json:"logo,omitempty"`
	Currency            *Currency        `json:"currency,omitempty"`
	Timetable           []TimetableRow   `json:"timetable"`
	ServicesByCatalogue []CatalogueEntry `json:"services_by_catalogue"`
}

type Image struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Path string `json:"path"`
}

type Currency struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// TimetableRow is one company opening-hours row.
type TimetableRow struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CatalogueEntry struct {
	Catalogue struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"catalogue"`
	Services []ServiceRecord `json:"services"`
}

type ServiceRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
}

type Staff struct {
	ID                  string `json:"id"`
	PersonalInformation struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"personal_information"`
	ProfileImage *Image          `json:"profile_image,omitempty"`
	Specialties  []Specialty     `json:"specialties"`
	Bookings     []BookingRecord `json:"bookings"`
	// WorkingHours overrides the company timetable when present.
	WorkingHours []HoursRecord `json:"working_hours,omitempty"`
	ServiceIDs   []string      `json:"service_ids,omitempty"`
}

type Specialty struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type HoursRecord struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  []int  `json:"days"`
}

type BookingRecord struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"status"`
	Service struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Duration string `json:"duration"`
	} `json:"service"`
	Customer *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"customer,omitempty"`
}

// Snapshot is a company ingested into the domain model.
type Snapshot struct {
	CompanyID  string           `json:"company_id"`
	Name       string           `json:"name"`
	Identifier string           `json:"identifier"`
	Timezone   string           `json:"timezone,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	Catalogue  []model.Category `json:"catalogue"`
	Workers    []model.Worker   `json:"workers"`
	// Issues lists records dropped during ingestion.
	Issues []string `json:"issues,omitempty"`
}

// Services returns every catalogue service in order.
func (s *Snapshot) Services() []model.Service {
	var out []model.Service
	for _, c := range s.Catalogue {
		out = append(out, c.Services...)
	}
	return out
}

// Snapshot validates the raw data and builds workers and the service catalogue.
// Malformed services and hours rows are dropped and reported in Issues.
// A malformed booking fails the whole ingestion.
func (d *CompanyData) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		CompanyID:  d.Company.ID,
		Name:       d.Company.Name,
		Identifier: d.Company.Identifier,
		Timezone:   d.Company.Timezone,
	}
	if d.Company.Currency != nil {
		snap.Currency = d.Company.Currency.Code
	}

	for _, entry := range d.Company.ServicesByCatalogue {
		cat := model.Category{ID: entry.Catalogue.ID, Name: entry.Catalogue.Name}
		for _, rec := range entry.Services {
			svc, err := model.NewService(rec.ID, rec.Name, rec.Duration, rec.Price)
			if err != nil {
				snap.Issues = append(snap.Issues, err.Error())
				continue
			}
			svc.CategoryID = cat.ID
			cat.Services = append(cat.Services, svc)
		}
		snap.Catalogue = append(snap.Catalogue, cat)
	}

	companyHours := make([]model.WorkingWindow, 0, len(d.Company.Timetable))
	for _, row := range d.Company.Timetable {
		w, err := model.NewWorkingWindow(row.StartTime, row.EndTime, row.DayOfWeek)
		if err != nil {
			snap.Issues = append(snap.Issues, fmt.Sprintf("timetable %s: %v", row.ID, err))
			continue
		}
		companyHours = append(companyHours, w)
	}

	snap.Workers = make([]model.Worker, 0, len(d.Staff))
	for _, st := range d.Staff {
		worker, err := st.worker(companyHours, snap)
		if err != nil {
			return nil, err
		}
		snap.Workers = append(snap.Workers, worker)
	}
	return snap, nil
}

func (st Staff) worker(companyHours []model.WorkingWindow, snap *Snapshot) (model.Worker, error) {
	w := model.Worker{
		ID:         st.ID,
		Name:       strings.TrimSpace(st.PersonalInformation.FirstName + " " + st.PersonalInformation.LastName),
		ServiceIDs: st.ServiceIDs,
	}
	if st.ProfileImage != nil {
		w.PhotoURL = st.ProfileImage.Path
	}
	for _, sp := range st.Specialties {
		w.Specialties = append(w.Specialties, sp.Text)
	}

	if len(st.WorkingHours) > 0 {
		for _, h := range st.WorkingHours {
			win, err := model.NewWorkingWindow(h.Start, h.End, h.Days...)
			if err != nil {
				snap.Issues = append(snap.Issues, fmt.Sprintf("staff %s hours: %v", st.ID, err))
				continue
			}
			w.WorkingWindows = append(w.WorkingWindows, win)
		}
	} else {
		w.WorkingWindows = append([]model.WorkingWindow(nil), companyHours...)
	}

	staffID := st.ID
	for _, rec := range st.Bookings {
		b, err := rec.booking(&staffID)
		if err != nil {
			return model.Worker{}, fmt.Errorf("staff %s: %w", st.ID, err)
		}
		w.Bookings = append(w.Bookings, b)
	}
	return w, nil
}

func (rec BookingRecord) booking(workerID *string) (model.Booking, error) {
	start, err := parseTimestamp(rec.StartTime)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: booking %s start: %v", model.ErrMalformedBookingInterval, rec.ID, err)
	}
	end, err := parseTimestamp(rec.EndTime)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: booking %s end: %v", model.ErrMalformedBookingInterval, rec.ID, err)
	}
	b, err := model.NewBooking(rec.ID, workerID, rec.Service.ID, start, end, rec.Status.Name)
	if err != nil {
		return model.Booking{}, err
	}
	b.ServiceName = rec.Service.Name
	if rec.Customer != nil {
		b.Customer = strings.TrimSpace(rec.Customer.FirstName + " " + rec.Customer.LastName)
	}
	return b, nil
}

// timestampLayouts are the shapes Postgres and PostgREST emit for timestamptz.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
