package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"strings"

	"github.com/google/uuid"
)

type UserSeed struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type CenterSeed struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Lon        float64    `json:"lon"`
	Lat        float64    `json:"lat"`
	Collectors []UserSeed `json:"collectors"`
}

type Seed struct {
	Centers   []CenterSeed `json:"centers"`
	Residents []UserSeed   `json:"residents"`
	Admins    []UserSeed   `json:"admins"`
}

// Seeder is the write surface seeding needs.
type Seeder interface {
	ports.CenterRepository
	ports.UserRepository
}

// Populate the store with centers, collectors and users from a JSON file.
// Records whose id already exists are left untouched.
func SeedFromJSON(ctx context.Context, store Seeder, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}
	return ApplySeed(ctx, store, data)
}

func ApplySeed(ctx context.Context, store Seeder, data Seed) error {
	for i, cs := range data.Centers {
		if cs.ID == uuid.Nil || strings.TrimSpace(cs.Name) == "" {
			return fmt.Errorf("seed centers: item at index %d: id and name are required", i+1)
		}
		loc := domain.Coordinates{Lon: cs.Lon, Lat: cs.Lat}
		if err := loc.Validate(); err != nil {
			return fmt.Errorf("seed centers: center %s: %w", cs.ID, err)
		}

		_, err := store.GetCenter(ctx, cs.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c := domain.Center{ID: cs.ID, Name: strings.TrimSpace(cs.Name), Location: loc}
			if err := store.CreateCenter(ctx, &c); err != nil {
				return fmt.Errorf("seed centers: %w", err)
			}
		case err != nil:
			return fmt.Errorf("seed centers: %w", err)
		}

		centerID := cs.ID
		for _, us := range cs.Collectors {
			u := domain.User{Role: domain.RoleCollector, CenterID: &centerID, IsAvailable: true}
			if err := seedUser(ctx, store, us, u); err != nil {
				return fmt.Errorf("seed collectors: %w", err)
			}
		}
	}

	for _, us := range data.Residents {
		if err := seedUser(ctx, store, us, domain.User{Role: domain.RoleResident}); err != nil {
			return fmt.Errorf("seed residents: %w", err)
		}
	}
	for _, us := range data.Admins {
		if err := seedUser(ctx, store, us, domain.User{Role: domain.RoleAdmin}); err != nil {
			return fmt.Errorf("seed admins: %w", err)
		}
	}
	return nil
}

func seedUser(ctx context.Context, store Seeder, us UserSeed, u domain.User) error {
	if us.ID == uuid.Nil {
		return fmt.Errorf("user %q: id is required", us.Email)
	}
	_, err := store.GetUser(ctx, us.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	u.ID = us.ID
	u.Name = strings.TrimSpace(us.Name)
	u.Email = strings.TrimSpace(us.Email)
	return store.CreateUser(ctx, &u)
}
