package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/vaccine-clinic-api/internal/config"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/postgres"
	auditService "github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	eventService "github.com/jwalitptl/vaccine-clinic-api/internal/service/event"
	scheduleService "github.com/jwalitptl/vaccine-clinic-api/internal/service/schedule"
	staffService "github.com/jwalitptl/vaccine-clinic-api/internal/service/staff"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/auth"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/validator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinicctl",
		Short:        "Vaccination clinic administration",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(staffCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(scheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*config.Config, *sqlx.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver != "postgres" {
		return nil, nil, fmt.Errorf("clinicctl needs the postgres storage driver, got %q", cfg.Storage.Driver)
	}
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := postgres.NewMigrator(db).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrations, applied, err := postgres.NewMigrator(db).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %s\n", "VERSION", "NAME", "STATUS")
			for _, m := range migrations {
				status := "pending"
				if applied[m.Version] {
					status = "applied"
				}
				fmt.Printf("%-10d %-40s %s\n", m.Version, m.Name, status)
			}
			return nil
		},
	})

	return cmd
}

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage clinic staff",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			repos := postgres.NewRepositories(db)
			directory := staffService.NewDirectory(repos.Staff, cfg.StaffCache.TTL, cfg.StaffCache.CleanupInterval)
			st := &model.Staff{Name: name, Email: email, Role: model.Role(role), Active: true}
			if err := directory.Register(cmd.Context(), st); err != nil {
				return err
			}
			fmt.Printf("Registered %s %s as %s\n", st.Role, st.Name, st.ID)
			return nil
		},
	}
	addCmd.Flags().String("name", "", "Display name")
	addCmd.Flags().String("role", string(model.RoleAdmin), "front_desk, doctor, nurse, payment or admin")
	addCmd.Flags().String("email", "", "Contact email")
	cmd.AddCommand(addCmd)

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a registered staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("staff-id")
			staffID, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --staff-id: %w", err)
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			repos := postgres.NewRepositories(db)
			directory := staffService.NewDirectory(repos.Staff, cfg.StaffCache.TTL, cfg.StaffCache.CleanupInterval)
			st, err := directory.GetActive(cmd.Context(), staffID)
			if err != nil {
				return err
			}

			token, err := auth.NewJWTService(cfg.ToJWTConfig()).GenerateAccessToken(model.Actor{StaffID: st.ID, Role: st.Role})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	issueCmd.Flags().String("staff-id", "", "Staff member the token acts for")
	cmd.AddCommand(issueCmd)

	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage shift schedules",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule and assign staff to every work date",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			actorRaw, _ := f.GetString("actor")
			name, _ := f.GetString("name")
			shift, _ := f.GetString("shift")
			startRaw, _ := f.GetString("start")
			endRaw, _ := f.GetString("end")
			weekdaysRaw, _ := f.GetString("weekdays")
			staffRaw, _ := f.GetStringSlice("staff")

			actorID, err := uuid.Parse(actorRaw)
			if err != nil {
				return fmt.Errorf("invalid --actor: %w", err)
			}
			start, err := model.ParseDate(startRaw)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			end, err := model.ParseDate(endRaw)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			weekdays, err := parseWeekdays(weekdaysRaw)
			if err != nil {
				return err
			}
			staffIDs := make([]uuid.UUID, 0, len(staffRaw))
			for _, s := range staffRaw {
				id, err := uuid.Parse(strings.TrimSpace(s))
				if err != nil {
					return fmt.Errorf("invalid staff id %q: %w", s, err)
				}
				staffIDs = append(staffIDs, id)
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			zapLogger, err := logger.NewZap(cfg.Log.Level, true)
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			repos := postgres.NewRepositories(db)
			directory := staffService.NewDirectory(repos.Staff, cfg.StaffCache.TTL, cfg.StaffCache.CleanupInterval)
			actor, err := directory.GetActive(cmd.Context(), actorID)
			if err != nil {
				return err
			}

			svc := scheduleService.NewService(
				repos.Schedules,
				directory,
				eventService.NewEventService(repos.Outbox, zapLogger),
				auditService.NewService(repos.Audit),
				validator.New(),
				metrics.NewMetrics(cfg.Metrics.Namespace+"_cli"),
				zapLogger,
				cfg.Scheduler.Workers,
			).WithClock(time.Now, cfg.Location())

			result, err := svc.CreateSchedule(cmd.Context(), model.Actor{StaffID: actor.ID, Role: actor.Role}, &model.ScheduleDefinition{
				Name:          name,
				ShiftType:     model.ShiftType(strings.ToUpper(shift)),
				StartDate:     start,
				EndDate:       end,
				RepeatPattern: len(weekdays) > 0,
				Weekdays:      weekdays,
				StaffIDs:      staffIDs,
			})
			if result != nil && result.Schedule != nil {
				printScheduleResult(result)
			}
			return err
		},
	}
	createCmd.Flags().String("actor", "", "Administrator staff id")
	createCmd.Flags().String("name", "", "Schedule name")
	createCmd.Flags().String("shift", string(model.ShiftMorning), "MORNING, AFTERNOON, EVENING or FULL_DAY")
	createCmd.Flags().String("start", "", "First date, YYYY-MM-DD")
	createCmd.Flags().String("end", "", "Last date, YYYY-MM-DD")
	createCmd.Flags().String("weekdays", "", "Comma separated weekdays, e.g. mon,wed; empty means every day")
	createCmd.Flags().StringSlice("staff", nil, "Staff ids to assign")
	cmd.AddCommand(createCmd)

	return cmd
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(raw string) ([]time.Weekday, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, wd)
	}
	return out, nil
}

func printScheduleResult(result *model.ScheduleResult) {
	fmt.Printf("Schedule %s (%d work dates)\n", result.Schedule.ID, len(result.WorkDates))
	counts := map[model.AssignmentOutcome]int{}
	for _, a := range result.Assignments {
		counts[a.Outcome]++
		if a.Outcome == model.OutcomeFailed {
			fmt.Printf("  failed %s on %s: %s\n", a.StaffID, a.WorkDateID, a.Error)
		}
	}
	fmt.Printf("created=%d already_exists=%d failed=%d\n",
		counts[model.OutcomeCreated], counts[model.OutcomeAlreadyExists], counts[model.OutcomeFailed])
}
