package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicwave/clinic-scheduling/internal/db"
)

// Seeds a demo clinic with staff, services, working hours, and patients so
// the API can be exercised locally right after migrating.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID, err := seedClinic(ctx, pool)
	if err != nil {
		log.Fatalf("seed clinic: %v", err)
	}
	staffIDs, err := seedStaff(ctx, pool, clinicID, 5)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedServices(ctx, pool, clinicID); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedWorkingHours(ctx, pool, clinicID, staffIDs); err != nil {
		log.Fatalf("seed working hours: %v", err)
	}
	if err := seedPatients(ctx, pool, clinicID, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Printf("seed complete, clinic id: %s", clinicID)
}

func seedClinic(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	id := uuid.New()
	phone := "+9626" + gofakeit.DigitN(7)
	_, err := pool.Exec(ctx, `
		INSERT INTO clinics (id, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, id, "عيادة الشفاء", phone)
	return id, err
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff members", count)

	roles := []string{"practitioner", "practitioner", "practitioner", "therapist", "nurse"}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "د. " + gofakeit.FirstName() + " " + gofakeit.LastName()
		role := roles[i%len(roles)]

		_, err := pool.Exec(ctx, `
			INSERT INTO staff_members (id, clinic_id, full_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, clinicID, name, role)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID) error {
	services := []struct {
		nameAr   string
		nameEn   string
		duration int
		price    float64
	}{
		{"استشارة عامة", "General Consultation", 30, 25},
		{"جلسة علاج طبيعي", "Physiotherapy Session", 45, 35},
		{"تنظيف بشرة", "Facial Cleaning", 60, 50},
		{"جلسة ليزر", "Laser Session", 30, 80},
		{"متابعة", "Follow-up", 15, 10},
	}

	log.Printf("seeding %d services", len(services))
	for _, s := range services {
		_, err := pool.Exec(ctx, `
			INSERT INTO services (id, clinic_id, name_ar, name_en, duration_minutes, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, uuid.New(), clinicID, s.nameAr, s.nameEn, s.duration, s.price)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedWorkingHours(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, staffIDs []uuid.UUID) error {
	log.Println("seeding working hours")

	for _, staffID := range staffIDs {
		for dow := 0; dow <= 6; dow++ {
			// Friday off; Saturday a short day. Sunday through Thursday
			// is the standard working week.
			working := dow != 5
			open, clos := "09:00", "17:00"
			if dow == 6 {
				open, clos = "10:00", "14:00"
			}

			var err error
			if working {
				_, err = pool.Exec(ctx, `
					INSERT INTO working_hours (id, clinic_id, staff_id, day_of_week, is_working, open_time, close_time)
					VALUES ($1, $2, $3, $4, TRUE, $5, $6)
				`, uuid.New(), clinicID, staffID, dow, open, clos)
			} else {
				_, err = pool.Exec(ctx, `
					INSERT INTO working_hours (id, clinic_id, staff_id, day_of_week, is_working)
					VALUES ($1, $2, $3, $4, FALSE)
				`, uuid.New(), clinicID, staffID, dow)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			name := gofakeit.Name()
			phone := fmt.Sprintf("+96279%07d", i)
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, clinic_id, full_name, phone, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), clinicID, name, phone, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}
