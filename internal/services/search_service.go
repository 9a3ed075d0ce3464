package services

import (
	"database/sql"
	"strings"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/models"
)

// SearchServiceProvider defines the interface for the search and filter
// queries.
type SearchServiceProvider interface {
	Search(f SearchFilters) ([]models.Vehicle, error)
	DistinctMakes() ([]string, error)
	ModelsForMake(makeName string) ([]string, error)
}

// SearchFilters narrows the result set; every supplied filter must match
// (logical AND). Make and model are case-insensitive exact matches, the
// numeric filters are inclusive lower bounds.
type SearchFilters struct {
	Make     string
	Model    string
	MinYear  *int
	MinPrice *float64
}

// SearchService provides the read-only search and filter pipeline.
type SearchService struct {
	db *sql.DB
}

// NewSearchService creates a new SearchService.
func NewSearchService(db *sql.DB) *SearchService {
	return &SearchService{db: db}
}

// Search returns matching vehicles ascending by price. With no filters it
// returns the whole catalog. Stored makes and models are already uppercase,
// so folding the filter value gives exact case-insensitive equality.
func (s *SearchService) Search(f SearchFilters) ([]models.Vehicle, error) {
	query := "SELECT id, owner_id, make, model, year, price, mileage, color, fuel_type, transmission, description, created_at FROM vehicles"
	var clauses []string
	var args []any

	if f.Make != "" {
		clauses = append(clauses, "make = ?")
		args = append(args, strings.ToUpper(f.Make))
	}
	if f.Model != "" {
		clauses = append(clauses, "model = ?")
		args = append(args, strings.ToUpper(f.Model))
	}
	if f.MinYear != nil {
		clauses = append(clauses, "year >= ?")
		args = append(args, *f.MinYear)
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "price >= ?")
		args = append(args, *f.MinPrice)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY price ASC"

	return scanVehicles(s.db.Query(query, args...))
}

// DistinctMakes returns every listed make, alphabetically.
func (s *SearchService) DistinctMakes() ([]string, error) {
	return s.distinctColumn("SELECT DISTINCT make FROM vehicles ORDER BY make ASC")
}

// ModelsForMake returns the models listed under a make, alphabetically. An
// unknown make is a NotFoundError.
func (s *SearchService) ModelsForMake(makeName string) ([]string, error) {
	sqlModels, err := s.distinctColumn("SELECT DISTINCT model FROM vehicles WHERE make = ? ORDER BY model ASC", strings.ToUpper(makeName))
	if err != nil {
		return nil, err
	}
	if len(sqlModels) == 0 {
		return nil, apperror.NewNotFound("No vehicles found for that make")
	}
	return sqlModels, nil
}

func (s *SearchService) distinctColumn(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperror.NewInternal("Error running search query", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperror.NewInternal("Error scanning search result", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
