package store

import (
	"context"
	"errors"
	"time"

	"stamprally/internal/booth/models"
	"stamprally/pkg/platform/sentinel"
)

type creator interface {
	CreateIfCodeAvailable(ctx context.Context, b *models.Booth) error
}

var defaultBooths = []struct {
	code, name, description string
}{
	{"BOOTH001", "Paper Craft Workshop", "Make traditional paper craft souvenirs"},
	{"BOOTH002", "Pottery Wheel Experience", "Throw your own pot on the wheel"},
	{"BOOTH003", "Natural Dyeing", "Dye fabric with plant-based pigments"},
	{"BOOTH004", "Local Food Kitchen", "Cook a regional specialty dish"},
	{"BOOTH005", "Folk Painting Studio", "Paint in the traditional folk style"},
	{"BOOTH006", "Calligraphy Corner", "Brush calligraphy for beginners"},
	{"BOOTH007", "Traditional Games", "Classic outdoor festival games"},
	{"BOOTH008", "Riverside Photo Gallery", "Seasonal river photography and photo zone"},
	{"BOOTH009", "History Exhibit", "Local history and culture exhibition"},
	{"BOOTH010", "Folk Instruments", "Try zithers, drums and other instruments"},
	{"BOOTH011", "Woodworking Bench", "Carve small wooden keepsakes"},
	{"BOOTH012", "Tea Ceremony", "Taste regional teas and learn the ceremony"},
	{"BOOTH013", "Nature Craft Table", "Crafts from pinecones, twigs and leaves"},
	{"BOOTH014", "Costume Photo Booth", "Dress in traditional costume for photos"},
	{"BOOTH015", "Grill Masterclass", "Prepare the town's signature grilled dish"},
	{"BOOTH016", "River Ecology Walk", "Learn about the river ecosystem"},
}

// SeedDefaultBooths inserts the standard festival booths, skipping any code
// that already exists. Returns the number of booths created.
func SeedDefaultBooths(ctx context.Context, s creator, now time.Time) (int, error) {
	created := 0
	for _, d := range defaultBooths {
		b, err := models.NewBooth(d.code, d.name, d.description, true, now)
		if err != nil {
			return created, err
		}
		if err := s.CreateIfCodeAvailable(ctx, b); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
