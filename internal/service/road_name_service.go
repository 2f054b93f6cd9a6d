package service

import (
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
)

// RoadNameService exposes the stored road name to edge mapping
type RoadNameService struct {
	repo *repository.RoadNameRepository
}

// NewRoadNameService creates a new road name service
func NewRoadNameService(repo *repository.RoadNameRepository) *RoadNameService {
	return &RoadNameService{repo: repo}
}

// RoadNameStats counts stored entries
type RoadNameStats struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
}

// List returns stored entries, optionally only those without an edge id
func (s *RoadNameService) List(unresolvedOnly bool, limit, offset int) ([]models.RoadNameEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(unresolvedOnly, limit, offset)
}

// Stats returns the entry counts
func (s *RoadNameService) Stats() (RoadNameStats, error) {
	total, unresolved, err := s.repo.Counts()
	if err != nil {
		return RoadNameStats{}, err
	}
	return RoadNameStats{Total: total, Unresolved: unresolved}, nil
}
