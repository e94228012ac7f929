package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database/postgres"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a subject's attendance as CSV",
	Long: `Export a subject's attendance rows as CSV, one row per student per
saved session. Use --from and --to (YYYY-MM-DD) to bound the date range.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("teacher", "", "Email of the teacher account")
	reportCmd.Flags().String("subject", "", "Subject ID to export")
	reportCmd.Flags().String("out", "", "Output file (defaults to stdout)")
	reportCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "End date, inclusive (YYYY-MM-DD)")
}

func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v := mustGetString(cmd, name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q, want YYYY-MM-DD", name, v)
	}
	return t, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	teacherEmail := mustGetString(cmd, "teacher")
	subjectID := mustGetString(cmd, "subject")
	outPath := mustGetString(cmd, "out")

	if teacherEmail == "" {
		return errors.New("--teacher is required")
	}
	if subjectID == "" {
		return errors.New("--subject is required")
	}

	from, err := parseDateFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := parseDateFlag(cmd, "to")
	if err != nil {
		return err
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()

	teacher, err := postgres.NewUserRepository(pool).GetByEmail(ctx, teacherEmail)
	if err != nil {
		return fmt.Errorf("looking up teacher: %w", err)
	}
	if teacher == nil {
		return fmt.Errorf("no teacher account with email %s", teacherEmail)
	}

	subject, err := postgres.NewSubjectRepository(pool).Get(ctx, teacher.ID, subjectID)
	if err != nil {
		return fmt.Errorf("looking up subject: %w", err)
	}
	if subject == nil {
		return fmt.Errorf("no subject %s for this teacher", subjectID)
	}

	entries, err := postgres.NewAttendanceRepository(pool).ListBySubject(ctx, teacher.ID, subjectID, from, to)
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No attendance rows in range")
		return nil
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	var bar *progressbar.ProgressBar
	if outPath != "" {
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetDescription("Writing report"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	w := csv.NewWriter(out)
	header := []string{"recorded_at", "batch_id", "student_name", "roll_number", "status"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.RecordedAt.Format(time.RFC3339),
			e.BatchID,
			e.StudentName,
			e.RollNumber,
			e.Status,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}

	if outPath != "" {
		fmt.Printf("\nWrote %d rows for %s to %s\n", len(entries), subject.Name, outPath)
	}
	return nil
}
