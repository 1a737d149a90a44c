package main

import (
	"context"
	"flag"
	"log"
	"time"

	"research-reports/backend/internal/config"
	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/repository"
	"research-reports/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sampleReport = "```markdown\n" +
	"# Heat pumps in cold climates\n\n" +
	"## Summary\n\n" +
	"Modern cold-climate heat pumps keep a useful coefficient of performance well below freezing.\n\n" +
	"| Outdoor temp | Typical COP |\n" +
	"|---|---|\n" +
	"| 5 °C | 3.5 |\n" +
	"| -15 °C | 2.0 |\n\n" +
	"## Sources\n\n" +
	"- Field trial data\n" +
	"- Manufacturer datasheets\n" +
	"```"

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store, err := repository.NewPostgresProvider(pool).Acquire(ctx)
	if err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	// Skip queries that are already present so the seed can be re-run.
	existing, err := store.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing researches: %v", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Query] = true
	}

	now := time.Now().UTC()
	report := sampleReport
	title := "Heat pumps in cold climates"
	duration := int64(412)
	started := now.Add(-2 * time.Hour)
	finished := started.Add(time.Duration(duration) * time.Second)

	seeds := []*models.Research{
		{
			Title:   &title,
			Query:   "How well do heat pumps work in cold climates?",
			Depth:   "2",
			Breadth: "4",
			Questions: []models.QuestionAnswer{
				{Question: "Which climate zones matter most to you?", Answer: "Nordic countries"},
				{Question: "Residential or commercial buildings?", Answer: "Residential"},
			},
			Status:    models.ResearchStatusComplete,
			Result:    &report,
			Duration:  &duration,
			CreatedAt: started,
			StartedAt: &started,
			UpdatedAt: &finished,
		},
		{
			Query:     "What limits grid-scale sodium-ion storage today?",
			Depth:     "3",
			Breadth:   "5",
			Questions: []models.QuestionAnswer{},
			Status:    models.ResearchStatusRunning,
			CreatedAt: now.Add(-5 * time.Minute),
		},
	}

	for _, r := range seeds {
		if seen[r.Query] {
			logger.Info("Skipping existing research", "query", r.Query)
			continue
		}
		r.ID = uuid.New().String()
		if err := store.Create(ctx, r); err != nil {
			log.Printf("Failed to create research %q: %v", r.Query, err)
			continue
		}
		logger.Info("Seeded research", "id", r.ID, "status", r.Status.String())
	}
	logger.Info("Seeding complete!")
}
