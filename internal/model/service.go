package model

import (
	"fmt"
	"time"
)

// Service is a bookable offering.
type Service struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CategoryID string   `json:"category_id,omitempty"`
	Duration   Duration `json:"duration"`
	Price      float64  `json:"price"`
}

// NewService parses the raw duration string and rejects non-positive durations.
func NewService(id, name, duration string, price float64) (Service, error) {
	d, err := ParseDuration(duration)
	if err != nil {
		return Service{}, fmt.Errorf("service %s: %w", id, err)
	}
	return Service{ID: id, Name: name, Duration: d, Price: price}, nil
}

// Category groups services the way the catalogue presents them.
type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Services []Service `json:"services"`
}

// TotalDuration sums service durations; zero when the list is empty.
func TotalDuration(services []Service) time.Duration {
	var total time.Duration
	for _, s := range services {
		total += s.Duration.Std()
	}
	return total
}

// FindServices resolves ids against the catalogue, keeping the requested order.
func FindServices(catalogue []Category, ids []string) ([]Service, error) {
	index := make(map[string]Service)
	for _, c := range catalogue {
		for _, s := range c.Services {
			index[s.ID] = s
		}
	}
	out := make([]Service, 0, len(ids))
	for _, id := range ids {
		s, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("unknown service %q", id)
		}
		out = append(out, s)
	}
	return out, nil
}
