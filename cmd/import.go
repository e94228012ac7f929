package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/database/postgres"
	"github.com/smartclass/attendance/internal/names"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a student roster from a legacy MySQL SIS",
	Long: `Import students from a legacy MySQL student information system.
Imported students carry name, roll number, and email but no face captures;
teachers add the two enrollment captures through the web UI afterwards.
Students whose roll number is already present are skipped.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("mysql-dsn", "", "MySQL DSN of the legacy SIS (user:pass@tcp(host:3306)/dbname)")
	importCmd.Flags().String("query", "SELECT name, roll_number, email FROM students", "Roster query returning name, roll_number, email")
	importCmd.Flags().String("teacher", "", "Email of the teacher account to import under")
	importCmd.Flags().Bool("dry-run", false, "Print what would be imported without writing")
}

type rosterRow struct {
	Name       string
	RollNumber string
	Email      string
}

// readRoster runs the roster query against the legacy system.
func readRoster(ctx context.Context, dsn, query string) ([]rosterRow, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var roster []rosterRow
	for rows.Next() {
		var row rosterRow
		var email sql.NullString
		if err := rows.Scan(&row.Name, &row.RollNumber, &email); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		row.Email = email.String
		roster = append(roster, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return roster, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	dsn := mustGetString(cmd, "mysql-dsn")
	query := mustGetString(cmd, "query")
	teacherEmail := mustGetString(cmd, "teacher")
	dryRun := mustGetBool(cmd, "dry-run")

	if dsn == "" {
		return errors.New("--mysql-dsn is required")
	}
	if teacherEmail == "" {
		return errors.New("--teacher is required")
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()

	roster, err := readRoster(ctx, dsn, query)
	if err != nil {
		return err
	}
	fmt.Printf("Read %d students from the legacy system\n", len(roster))
	if len(roster) == 0 {
		return nil
	}

	if dryRun {
		for _, row := range roster {
			fmt.Printf("  %s (roll %s)\n", names.Normalize(row.Name), row.RollNumber)
		}
		fmt.Println("Dry run, nothing written")
		return nil
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	teacher, err := userRepo.GetByEmail(ctx, teacherEmail)
	if err != nil {
		return fmt.Errorf("looking up teacher: %w", err)
	}
	if teacher == nil {
		return fmt.Errorf("no teacher account with email %s", teacherEmail)
	}

	studentRepo := postgres.NewStudentRepository(pool)

	existing, err := studentRepo.List(ctx, teacher.ID)
	if err != nil {
		return fmt.Errorf("listing existing students: %w", err)
	}
	byRoll := make(map[string]bool, len(existing))
	for i := range existing {
		if existing[i].RollNumber != "" {
			byRoll[existing[i].RollNumber] = true
		}
	}

	bar := progressbar.NewOptions(len(roster),
		progressbar.OptionSetDescription("Importing students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	imported := 0
	skipped := 0
	for _, row := range roster {
		bar.Add(1)
		if row.RollNumber != "" && byRoll[row.RollNumber] {
			skipped++
			continue
		}
		student := &database.Student{
			ID:         uuid.New().String(),
			TeacherID:  teacher.ID,
			Name:       names.Normalize(row.Name),
			RollNumber: row.RollNumber,
			Email:      row.Email,
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			return fmt.Errorf("importing %s: %w", row.Name, err)
		}
		imported++
	}

	fmt.Printf("\nImported %d students, skipped %d already present\n", imported, skipped)
	fmt.Println("Imported students have no face captures yet; enroll them through the web UI")
	return nil
}
