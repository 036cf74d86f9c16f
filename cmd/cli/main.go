package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/internal/config"
	"github.com/jonasweber/staffwerk/pkg/clients/gmailclient"
	"github.com/jonasweber/staffwerk/pkg/core/lifecycle"
	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/core/services"
	"github.com/jonasweber/staffwerk/pkg/db"
	"github.com/jonasweber/staffwerk/pkg/postgres"
	"github.com/jonasweber/staffwerk/pkg/utils"
	"github.com/jonasweber/staffwerk/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg         *config.Config
	oauthCfg    *config.OAuthClientConfig
	gmailClient *gmailclient.Client
	database    *postgres.DB
	controller  *lifecycle.Controller
	logger      *zap.Logger
	ctx         context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Staffwerk CLI - Manage event staffing",
		Long:  `A CLI tool for managing events, recruitment rounds, work area assignment and time tracking.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(createEventCmd())
	rootCmd.AddCommand(openRecruitmentCmd())
	rootCmd.AddCommand(materializeEventsCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(recruitCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(assignEmployeeCmd())
	rootCmd.AddCommand(removeAssignmentCmd())
	rootCmd.AddCommand(resetAssignmentsCmd())
	rootCmd.AddCommand(signInCmd())
	rootCmd.AddCommand(signOutCmd())
	rootCmd.AddCommand(listEmployeesCmd())
	rootCmd.AddCommand(syncCapabilitiesCmd())
	rootCmd.AddCommand(resetEventCmd())
	rootCmd.AddCommand(interactiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, clients, database and lifecycle controller
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	// Initialize logger
	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	// Load OAuth client configuration
	app.logger.Info("Loading OAuth client configuration")
	app.oauthCfg, err = config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}
	app.logger.Debug("OAuth configuration loaded successfully")

	// Obtain OAuth token (cached on disk, interactive flow on first run)
	oauthConfig, err := utils.GetOAuthConfig(app.oauthCfg)
	if err != nil {
		return fmt.Errorf("failed to build oauth config: %w", err)
	}
	token, err := utils.GetTokenWithFlow(app.ctx, oauthConfig, env)
	if err != nil {
		return fmt.Errorf("failed to obtain oauth token: %w", err)
	}

	// Initialize gmail client
	app.logger.Info("Initializing gmail client")
	app.gmailClient, err = gmailclient.NewClient(app.ctx, app.oauthCfg, token, app.cfg.GmailUserID, app.cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}
	app.logger.Debug("Gmail client initialized successfully")

	// Connect to database and apply migrations
	app.logger.Info("Connecting to database")
	app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.database.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Info("Database initialized successfully")

	// Initialize lifecycle controller
	app.controller = lifecycle.NewController(app.database, app.gmailClient, app.logger, lifecycleConfig(app.cfg))

	return nil
}

// lifecycleConfig maps the yaml configuration onto the controller tunables.
func lifecycleConfig(cfg *config.Config) lifecycle.Config {
	windows := lifecycle.DefaultWindows()
	windows.ActiveBefore = cfg.Lifecycle.ActiveWindowBefore.Std(windows.ActiveBefore)
	windows.ActiveAfter = cfg.Lifecycle.ActiveWindowAfter.Std(windows.ActiveAfter)
	windows.CompletionGrace = cfg.Lifecycle.CompletionGrace.Std(windows.CompletionGrace)

	plateau := recruiting.DefaultPlateauPolicy()
	if cfg.Recruitment.PlateauAskedFactor > 0 {
		plateau.AskedFactor = cfg.Recruitment.PlateauAskedFactor
	}

	return lifecycle.Config{
		Windows:       windows,
		Plateau:       plateau,
		NotifyTimeout: cfg.Recruitment.NotifyTimeout.Std(10 * time.Second),
	}
}

// Command definitions

func createEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createEvent <title> <date>",
		Short: "Create a draft event (date format: 2006-01-02)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("date must be in 2006-01-02 format: %w", err)
			}

			location, _ := cmd.Flags().GetString("location")
			startTime, _ := cmd.Flags().GetString("start")
			endTime, _ := cmd.Flags().GetString("end")
			rate, _ := cmd.Flags().GetFloat64("rate")
			needed, _ := cmd.Flags().GetInt("needed")
			toAsk, _ := cmd.Flags().GetInt("ask")

			event, err := services.CreateEvent(app.ctx, app.database, app.logger, services.EventInput{
				Title:           args[0],
				Location:        location,
				Date:            date,
				StartTime:       startTime,
				EndTime:         endTime,
				HourlyRate:      rate,
				EmployeesNeeded: needed,
				EmployeesToAsk:  toAsk,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Event created!\n\n")
			fmt.Printf("Event ID: %s\n", event.ID)
			fmt.Printf("Title:    %s\n", event.Title)
			fmt.Printf("Date:     %s\n", event.Date.Format("2006-01-02"))
			fmt.Printf("Status:   %s\n\n", event.Status)
			fmt.Println("Run openRecruitment to start inviting employees.")

			return nil
		},
	}

	cmd.Flags().String("location", "", "Event location")
	cmd.Flags().String("start", "", "Start time (15:04)")
	cmd.Flags().String("end", "", "End time (15:04), optional")
	cmd.Flags().Float64("rate", 0, "Hourly rate")
	cmd.Flags().Int("needed", 1, "Employees needed")
	cmd.Flags().Int("ask", 1, "Employees to ask per recruitment round")
	cmd.MarkFlagRequired("location")
	cmd.MarkFlagRequired("start")

	return cmd
}

func openRecruitmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "openRecruitment <event_id>",
		Short: "Move a draft event into recruiting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.OpenRecruitment(app.ctx, app.database, app.logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Recruitment opened for event %s\n", args[0])
			fmt.Println("The next sweep will dispatch the first round of invitations.")
			return nil
		},
	}
}

func materializeEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materializeEvents",
		Short: "Expand configured recurring event templates into concrete events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			horizon := app.cfg.MaterializeHorizon.Std(28 * 24 * time.Hour)
			created, err := services.MaterializeRecurringEvents(
				app.ctx, app.database, app.logger,
				app.cfg.RecurringEvents, time.Now(), horizon)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Materialized %d new events (horizon %s)\n", created, horizon)
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one lifecycle sweep over all open events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			if watch {
				interval := app.cfg.Lifecycle.SweepInterval.Std(time.Minute)
				fmt.Printf("Sweeping every %s, Ctrl-C to stop...\n", interval)
				app.controller.Run(app.ctx, interval)
				return nil
			}

			if err := app.controller.Sweep(app.ctx); err != nil {
				return err
			}
			fmt.Println("\n✓ Sweep finished")
			return nil
		},
	}

	cmd.Flags().Bool("watch", false, "Keep sweeping on the configured interval")

	return cmd
}

func recruitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recruit <event_id>",
		Short: "Trigger an additional recruitment round for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.controller.TriggerAdditionalRecruitment(app.ctx, args[0])
			if err != nil {
				return err
			}

			printEvaluation(report.Evaluation)

			if len(report.Invited) > 0 {
				fmt.Printf("Invited %d employees:\n", len(report.Invited))
				for _, id := range report.Invited {
					fmt.Printf("  ✓ %s\n", id)
				}
			} else {
				fmt.Println("No additional invitations were needed.")
			}
			for _, failure := range report.Failures {
				fmt.Printf("  ✗ %s: %v\n", failure.EmployeeID, failure.Err)
			}
			fmt.Println()

			return nil
		},
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <event_id>",
		Short: "Show the recruitment picture for an event without sending anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := app.database.GetEvent(app.ctx, args[0])
			if err != nil {
				return err
			}
			employees, err := app.database.ListEmployees(app.ctx, db.EmployeeFilter{})
			if err != nil {
				return err
			}
			statuses, err := app.database.GetEmployeeEventStatuses(app.ctx, event.ID)
			if err != nil {
				return err
			}
			areas, err := app.database.GetWorkAreas(app.ctx, event.ID)
			if err != nil {
				return err
			}

			eval := recruiting.Evaluate(*event, employees, statuses, areas, lifecycleConfig(app.cfg).Plateau)
			fmt.Printf("\nEvent %s (%s, %s)\n", event.ID, event.Title, event.Status)
			printEvaluation(eval)

			return nil
		},
	}
}

func printEvaluation(eval recruiting.Evaluation) {
	fmt.Printf("\nRecruitment status:\n")
	fmt.Printf("  Needed:     %d\n", eval.EmployeesNeeded)
	fmt.Printf("  Available:  %d\n", eval.EmployeesAvailable)
	fmt.Printf("  Asked:      %d\n", eval.EmployeesAsked)
	fmt.Printf("  Pool left:  %d\n", eval.RemainingPool)
	if eval.NeedsMoreRecruitment {
		fmt.Printf("  → short %d, suggest asking %d more\n\n", eval.EmployeesNeeded-eval.EmployeesAvailable, eval.SuggestedAdditionalAsks)
	} else {
		fmt.Printf("  → no additional recruitment needed right now\n\n")
	}
}

func assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <event_id>",
		Short: "Auto-assign committed employees to work areas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.AutoAssignWorkAreas(app.ctx, app.database, app.logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Auto-assignment finished\n\n")
			if len(result.Applied) > 0 {
				fmt.Printf("Placed %d employees:\n", len(result.Applied))
				for _, p := range result.Applied {
					fmt.Printf("  ✓ %s → %s (%s)\n", p.EmployeeID, p.WorkAreaID, p.ForRole)
				}
				fmt.Println()
			}
			if len(result.Skipped) > 0 {
				fmt.Printf("Skipped %d placements:\n", len(result.Skipped))
				for _, s := range result.Skipped {
					fmt.Printf("  ✗ %s → %s: %v\n", s.Placement.EmployeeID, s.Placement.WorkAreaID, s.Err)
				}
				fmt.Println()
			}
			if len(result.Unassigned) > 0 {
				fmt.Printf("Unassigned employees: %s\n\n", strings.Join(result.Unassigned, ", "))
			}
			for _, unmet := range result.UnmetRequirements {
				fmt.Printf("  ! area %s still needs %d x %s\n", unmet.WorkAreaID, unmet.Missing, unmet.Role)
			}

			return nil
		},
	}
}

func assignEmployeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignEmployee <employee_id> <work_area_id> <event_id>",
		Short: "Manually place one employee into a work area",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.AssignEmployee(app.ctx, app.database, app.logger, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Assigned %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func removeAssignmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "removeAssignment <employee_id> <event_id>",
		Short: "Remove an employee's work area assignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.RemoveAssignment(app.ctx, app.database, app.logger, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Assignment removed for %s\n", args[0])
			return nil
		},
	}
}

func resetAssignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resetAssignments <event_id>",
		Short: "Clear all assignments of an event so auto-assignment can re-run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ResetAssignments(app.ctx, app.database, app.logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Assignments reset for event %s\n", args[0])
			return nil
		},
	}
}

func signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin <employee_id> <event_id>",
		Short: "Open a work session for an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := services.SignIn(app.ctx, app.database, app.logger, args[0], args[1], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Signed in at %s (record %s)\n", record.SignInTime.Format("15:04"), record.ID)
			return nil
		},
	}
}

func signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout <employee_id> <event_id>",
		Short: "Close an employee's work session and compute pay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := services.SignOut(app.ctx, app.database, app.logger, args[0], args[1], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Signed out\n\n")
			fmt.Printf("Hours worked: %.2f\n", record.TotalHours)
			fmt.Printf("Payment:      %.2f EUR\n\n", record.TotalPayment)
			return nil
		},
	}
}

func listEmployeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listEmployees",
		Short: "List employees, optionally filtered by role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roleFlag, _ := cmd.Flags().GetString("role")

			filter := db.EmployeeFilter{}
			if roleFlag != "" {
				role, err := model.ParseRole(roleFlag)
				if err != nil {
					return err
				}
				filter.Role = role
			}
			if cmd.Flags().Changed("always-needed") {
				alwaysNeeded, _ := cmd.Flags().GetBool("always-needed")
				filter.AlwaysNeeded = &alwaysNeeded
			}

			employees, err := app.database.ListEmployees(app.ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d employees:\n\n", len(employees))
			for _, e := range employees {
				lastWorked := "never"
				if e.LastWorkedDate != nil {
					lastWorked = e.LastWorkedDate.Format("2006-01-02")
				}
				marker := ""
				if e.AlwaysNeeded {
					marker = " [always needed]"
				}
				fmt.Printf("- %s (%s) - %s/%s - last worked %s, %.1fh total%s\n",
					e.Name, e.ID, e.Role, e.EmploymentType, lastWorked, e.TotalHoursWorked, marker)
			}

			return nil
		},
	}

	cmd.Flags().String("role", "", "Filter by role")
	cmd.Flags().Bool("always-needed", false, "Filter by the always-needed flag")

	return cmd
}

func syncCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syncCapabilities",
		Short: "Re-derive every employee's capability set from their role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repaired, err := services.SyncEmployeeCapabilities(app.ctx, app.database, app.logger)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Capability sync finished, %d employees repaired\n", repaired)
			return nil
		},
	}
}

func resetEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resetEvent <event_id>",
		Short: "Clear all event-scoped data and restart recruitment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ResetEvent(app.ctx, app.database, app.logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Event %s reset to recruiting\n", args[0])
			return nil
		},
	}
}

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (authenticate once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands without re-authenticating.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\nStarting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			// Get all sibling commands (excluding interactive itself)
			rootCmd := cmd.Parent()
			commands := make(map[string]*cobra.Command)
			for _, subCmd := range rootCmd.Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					commands[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				// Parse command
				parts := strings.Fields(line)
				cmdName := parts[0]
				cmdArgs := parts[1:]

				// Handle exit
				if cmdName == "exit" || cmdName == "quit" {
					fmt.Println("Goodbye!")
					return nil
				}

				// Handle help
				if cmdName == "help" {
					printInteractiveHelp(commands)
					continue
				}

				// Execute command via Cobra
				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Printf("✗ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				// Reset command flags and args
				targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					flag.Value.Set(flag.DefValue)
				})

				// Execute the command's RunE directly, bypassing the full Execute() flow
				// This avoids re-running PersistentPreRunE which would call initApp() again
				if err := targetCmd.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("✗ Error parsing flags: %v\n\n", err)
					continue
				}

				// Get non-flag args after parsing flags
				cmdArgs = targetCmd.Flags().Args()

				// Validate args
				if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
					fmt.Printf("✗ Error: %v\n\n", err)
					continue
				}

				// Execute the RunE function directly
				if targetCmd.RunE != nil {
					if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
						fmt.Printf("✗ Error: %v\n\n", err)
					}
				} else if targetCmd.Run != nil {
					targetCmd.Run(targetCmd, cmdArgs)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}

	return cmd
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	// Get command names and sort them
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}

	// Print each command with its short description
	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-30s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Println("\n  help                           Show this help message")
	fmt.Println("  exit, quit                     Exit the interactive session")
}
