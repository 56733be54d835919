// Command seed-demo drops and recreates the booking-store tables, then loads
// the demo catalog. Development tool only; production schemas are managed by
// the versioned migrations.
package main

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	dsn := "postgres://" + cfg.Database.Username + ":" + cfg.Database.Password +
		"@" + cfg.Database.Host + ":" + cfg.Database.Port + "/" + cfg.Database.Database + "?sslmode=disable"
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	log.Println("Dropping tables...")
	_ = dropTables(ctx, db)

	log.Println("Creating tables...")
	createTables(ctx, db)

	log.Println("Seeding demo catalog...")
	seedCatalog(ctx, db, cfg.Cinema.DefaultTimings, cfg.Cinema.SeatsTotal)

	log.Println("✅ Done.")
}

func dropTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.WatchlistEntry)(nil),
		(*models.SeatCell)(nil),
		(*models.Booking)(nil),
		(*models.User)(nil),
		(*models.Movie)(nil),
	}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
	return nil
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.Movie)(nil),
		(*models.User)(nil),
		(*models.Booking)(nil),
		(*models.SeatCell)(nil),
		(*models.WatchlistEntry)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("❌ Failed to create table for %T: %v", m, err)
		}
	}
}

func seedCatalog(ctx context.Context, db *bun.DB, timings []string, capacity int) {
	movies := []models.Movie{
		{Title: "Barbie", Poster: "https://image.tmdb.org/t/p/w780/iuFNMS8U5cb6xfzi51Dbkovj7vM.jpg", Year: 2023, Rating: 7.0, Genre: "Comedy", Language: "English", Duration: 114, Actors: []string{"Margot Robbie", "Ryan Gosling", "America Ferrera"}, Desc: "Barbie and Ken explore the real world in a pastel adventure."},
		{Title: "Killers of the Flower Moon", Poster: "https://image.tmdb.org/t/p/w780/dB6Krk806zeqd0YNp2ngQ9zXteH.jpg", Year: 2023, Rating: 7.5, Genre: "Drama", Language: "English", Duration: 206, Actors: []string{"Leonardo DiCaprio", "Robert De Niro", "Lily Gladstone"}, Desc: "Osage murders spark an FBI investigation in 1920s Oklahoma."},
		{Title: "John Wick: Chapter 4", Poster: "https://image.tmdb.org/t/p/w780/2lUYbD2C3XSuwqMUbDVDQuz9mqz.jpg", Year: 2023, Rating: 7.7, Genre: "Action", Language: "English", Duration: 169, Actors: []string{"Keanu Reeves", "Donnie Yen", "Bill Skarsgård"}, Desc: "John Wick faces deadly foes as the bounty rises."},
		{Title: "Spider-Man: Across the Spider-Verse", Poster: "https://image.tmdb.org/t/p/w780/8Vt6mWEReuy4Of61Lnj5Xj704m8.jpg", Year: 2023, Rating: 8.6, Genre: "Animation", Language: "English", Duration: 140, Actors: []string{"Shameik Moore", "Hailee Steinfeld", "Oscar Isaac"}, Desc: "Miles Morales journeys through the Multiverse."},
		{Title: "Guardians of the Galaxy Vol. 3", Poster: "https://image.tmdb.org/t/p/w780/r2J02Z2OpNTctfOSN1Ydgii51I3.jpg", Year: 2023, Rating: 7.9, Genre: "Sci-Fi", Language: "English", Duration: 150, Actors: []string{"Chris Pratt", "Zoe Saldaña", "Dave Bautista"}, Desc: "The Guardians reunite for one last mission."},
		{Title: "Wonka", Poster: "https://image.tmdb.org/t/p/w780/qhb1qOilapbapxWQn9jtRCMwXJF.jpg", Year: 2023, Rating: 7.2, Genre: "Family", Language: "English", Duration: 117, Actors: []string{"Timothée Chalamet", "Olivia Colman", "Keegan-Michael Key"}, Desc: "Young Willy Wonka invents iconic treats and meets Oompa-Loompas."},
	}

	for i := range movies {
		movies[i].Position = i
		movies[i].Timings = append([]string(nil), timings...)
	}
	if _, err := db.NewInsert().Model(&movies).Exec(ctx); err != nil {
		log.Fatalf("❌ Failed to seed catalog: %v", err)
	}

	// Full-capacity ledger so browse pages have rows before the first reconcile.
	var cells []models.SeatCell
	for i := range movies {
		for t := range movies[i].Timings {
			cells = append(cells, models.SeatCell{MovieIdx: i, TimingIdx: t, SeatsLeft: capacity})
		}
	}
	if _, err := db.NewInsert().Model(&cells).Exec(ctx); err != nil {
		log.Fatalf("❌ Failed to seed ledger: %v", err)
	}
}
