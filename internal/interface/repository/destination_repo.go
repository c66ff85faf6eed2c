package repository

import (
	"context"
	"strings"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDestinationRepository implements the DestinationRepository interface
type GormDestinationRepository struct {
	db *gorm.DB
}

// NewGormDestinationRepository creates a new GORM destination repository
func NewGormDestinationRepository(db *gorm.DB) *GormDestinationRepository {
	return &GormDestinationRepository{
		db: db,
	}
}

var _ repository.DestinationRepository = (*GormDestinationRepository)(nil)

// Timezonelist GORM model for database mapping
type Timezonelist struct {
	gorm.Model
	AirportCode   string `gorm:"column:airportcode;unique"`
	AirportName   string `gorm:"column:airport_name"`
	CityCode      string `gorm:"column:citycode"`
	CityName      string `gorm:"column:cityname"`
	Country       string `gorm:"column:country"`
	TzName        string `gorm:"column:tzname"`
	FlightMinutes int    `gorm:"column:flight_minutes"`
}

// TableName overrides the default table name
func (Timezonelist) TableName() string {
	return "m_timezone_list"
}

func (t Timezonelist) toEntity() *entity.Destination {
	return &entity.Destination{
		Code:       strings.ToUpper(t.AirportCode),
		City:       t.CityName,
		Country:    t.Country,
		TimeZone:   t.TzName,
		FlightTime: time.Duration(t.FlightMinutes) * time.Minute,
	}
}

// Migrate creates or updates the destination table.
func (r *GormDestinationRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Timezonelist{})
}

// Seed inserts destinations whose airport code is not stored yet.
func (r *GormDestinationRepository) Seed(ctx context.Context, destinations []entity.Destination) error {
	if len(destinations) == 0 {
		return nil
	}
	rows := make([]Timezonelist, 0, len(destinations))
	for _, d := range destinations {
		rows = append(rows, Timezonelist{
			AirportCode:   strings.ToUpper(d.Code),
			AirportName:   d.City,
			CityCode:      strings.ToUpper(d.Code),
			CityName:      d.City,
			Country:       d.Country,
			TzName:        d.TimeZone,
			FlightMinutes: int(d.FlightTime / time.Minute),
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "airportcode"}}, DoNothing: true}).
		Create(&rows).Error
}

// GetByCode finds a destination by airport code
func (r *GormDestinationRepository) GetByCode(ctx context.Context, code string) (*entity.Destination, error) {
	var row Timezonelist
	result := r.db.WithContext(ctx).Where("airportcode = ?", strings.ToUpper(code)).First(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	return row.toEntity(), nil
}

// List returns every stored destination ordered by airport code
func (r *GormDestinationRepository) List(ctx context.Context) ([]*entity.Destination, error) {
	var rows []Timezonelist
	if err := r.db.WithContext(ctx).Order("airportcode").Find(&rows).Error; err != nil {
		return nil, err
	}

	destinations := make([]*entity.Destination, 0, len(rows))
	for _, row := range rows {
		destinations = append(destinations, row.toEntity())
	}
	return destinations, nil
}
