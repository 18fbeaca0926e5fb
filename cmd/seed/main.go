package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"notesu/internal/config"
	"notesu/internal/db"
	apperrors "notesu/internal/errors"
	"notesu/internal/model"
	"notesu/internal/repository"
	"notesu/internal/storage"
)

// SeedUser pairs a fixture account with the notes it owns.
type SeedUser struct {
	Username string
	Password string
	Email    string
	Notes    []SeedNote
}

type SeedNote struct {
	Title         string
	Description   string
	AcademicYear  string
	Semester      string
	SubjectCode   string
	NotesType     string
	FileExtension string
}

var fixtures = []SeedUser{
	{
		Username: "amira",
		Password: "correct-horse",
		Email:    "amira@example.edu",
		Notes: []SeedNote{
			{Title: "Linear Algebra Midterm Review", Description: "Eigenvalues, diagonalization and worked past-paper questions.", AcademicYear: "2025-2026", Semester: "fall", SubjectCode: "MATH201", NotesType: "summary", FileExtension: "pdf"},
			{Title: "Calculus III Lecture 4", AcademicYear: "2025-2026", Semester: "fall", SubjectCode: "MATH204", NotesType: "lecture", FileExtension: "pdf"},
			{Title: "Probability Cheatsheet", Description: "Distributions table and common identities.", AcademicYear: "2024-2025", Semester: "spring", SubjectCode: "STAT210", NotesType: "summary", FileExtension: "docx"},
		},
	},
	{
		Username: "omar",
		Password: "battery-staple",
		Email:    "omar@example.edu",
		Notes: []SeedNote{
			{Title: "Operating Systems Scheduling", Description: "Round robin, MLFQ and the midterm scheduling questions.", AcademicYear: "2025-2026", Semester: "fall", SubjectCode: "CS350", NotesType: "lecture", FileExtension: "pptx"},
			{Title: "Networks Lab 2 Writeup", AcademicYear: "2025-2026", Semester: "fall", SubjectCode: "CS352", NotesType: "lab", FileExtension: "pdf"},
		},
	},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	var objectStore storage.ObjectStorage
	if cfg.S3Bucket != "" {
		objectStore, err = storage.NewS3Storage(context.Background(), storage.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatalf("Failed to init object storage: %v", err)
		}
	} else {
		log.Println("S3_BUCKET not set, seeding metadata rows only")
	}

	userRepo := repository.NewUserRepository(gormDB)
	noteRepo := repository.NewNoteRepository(gormDB)
	ctx := context.Background()

	created, skipped, err := seedUsers(ctx, userRepo, noteRepo, objectStore, fixtures)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Rows created: %d", created)
	log.Printf("  - Rows already present: %d", skipped)
}

// seedUsers inserts the fixture users and their notes, skipping anything
// already in the database so the script can be re-run safely.
func seedUsers(ctx context.Context, users repository.UserRepository, notes repository.NoteRepository, store storage.ObjectStorage, fixtures []SeedUser) (created int, skipped int, err error) {
	for _, fixture := range fixtures {
		user, err := users.FindByUsername(ctx, fixture.Username)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(fixture.Password), bcrypt.DefaultCost)
			if err != nil {
				return created, skipped, fmt.Errorf("hashing password for %s: %w", fixture.Username, err)
			}
			email := fixture.Email
			user = &model.User{
				Username:     fixture.Username,
				PasswordHash: string(hash),
				Email:        &email,
			}
			if err := users.Create(ctx, user); err != nil {
				return created, skipped, fmt.Errorf("creating user %s: %w", fixture.Username, err)
			}
			created++
		case err != nil:
			return created, skipped, fmt.Errorf("looking up user %s: %w", fixture.Username, err)
		default:
			skipped++
		}

		for i, seed := range fixture.Notes {
			// Spread creation times so the newest-first ordering is visible.
			ts := time.Now().Add(-time.Duration(len(fixture.Notes)-i) * time.Hour)
			key := storage.AssignKey(user.ID.String(), seed.Title, ts.UnixMilli(), seed.FileExtension)

			content := []byte(fmt.Sprintf("seed fixture: %s\n", seed.Title))
			if store != nil {
				if err := store.Put(ctx, key, content, "application/octet-stream"); err != nil {
					return created, skipped, fmt.Errorf("uploading fixture object %s: %w", key, err)
				}
			}

			note := &model.Note{
				OwnerID:       user.ID,
				Title:         seed.Title,
				Description:   seed.Description,
				AcademicYear:  seed.AcademicYear,
				Semester:      seed.Semester,
				SubjectCode:   seed.SubjectCode,
				NotesType:     seed.NotesType,
				FileExtension: seed.FileExtension,
				FileSizeBytes: int64(len(content)),
				StorageKey:    key,
				CreatedAt:     ts,
			}
			if err := notes.Insert(ctx, note); err != nil {
				if errors.Is(err, apperrors.ErrDuplicateStorageKey) {
					skipped++
					continue
				}
				return created, skipped, fmt.Errorf("creating note %q: %w", seed.Title, err)
			}
			created++
		}
	}
	return created, skipped, nil
}
