package model

// NoPreference is the worker choice that lets any qualified worker take the booking.
const NoPreference = "no_preference"

// Worker is a staff member with working windows and the bookings assigned to them.
type Worker struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PhotoURL       string          `json:"photo_url,omitempty"`
	Specialties    []string        `json:"specialties,omitempty"`
	WorkingWindows []WorkingWindow `json:"-"`
	Bookings       []Booking       `json:"-"`
	// ServiceIDs restricts the services the worker performs; empty means all.
	ServiceIDs []string `json:"service_ids,omitempty"`
}

// Qualified reports whether the worker performs every given service.
func (w Worker) Qualified(services []Service) bool {
	if len(w.ServiceIDs) == 0 {
		return true
	}
	allowed := make(map[string]bool, len(w.ServiceIDs))
	for _, id := range w.ServiceIDs {
		allowed[id] = true
	}
	for _, s := range services {
		if !allowed[s.ID] {
			return false
		}
	}
	return true
}

// FindWorker looks a worker up by id.
func FindWorker(workers []Worker, id string) (Worker, bool) {
	for _, w := range workers {
		if w.ID == id {
			return w, true
		}
	}
	return Worker{}, false
}
