package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tool_lending_admin/app"
	"tool_lending_admin/config"
	"tool_lending_admin/db"
	"tool_lending_admin/routes"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB 只连数据库，migrate / admin 子命令不需要 Redis
func openDB(ctx context.Context) (*gorm.DB, func(), error) {
	cfg := config.Load()
	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return gdb, closeFn, nil
}

var rootCmd = &cobra.Command{
	Use:   "lsb",
	Short: "Tool lending administration backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv()
		level := slog.LevelInfo
		if v, _ := cmd.Flags().GetBool("debug"); v {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Load()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if skip, _ := cmd.Flags().GetBool("no-migrate"); !skip {
			if err := db.Migrate(a.DB); err != nil {
				return err
			}
		}
		if err := app.BootstrapFirstAdmin(ctx, cfg, a.Repo); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}

		routes.RegisterRoutes(a.Router, a)

		srv := &http.Server{Addr: ":" + cfg.Port, Handler: a.Router, ReadHeaderTimeout: 10 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			slog.Info("listening", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, closeDB, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		if err := db.Migrate(gdb); err != nil {
			return err
		}
		v, _, err := db.MigrationVersion(gdb)
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", v)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		gdb, closeDB, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		return db.MigrateDown(gdb, steps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, closeDB, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		v, dirty, err := db.MigrationVersion(gdb)
		if err != nil {
			return err
		}
		fmt.Printf("Version: %d\n", v)
		fmt.Printf("Dirty:   %t\n", dirty)
		return nil
	},
}

// admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cin, _ := cmd.Flags().GetString("cin")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")

		gdb, closeDB, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		u, err := db.NewRepo(gdb).CreateUser(cmd.Context(), db.UserInput{
			Name: name, CIN: cin, Password: password, IsAdmin: true,
		})
		if err != nil {
			return fmt.Errorf("creating admin: %w", err)
		}
		fmt.Printf("Admin created: %s (%s)\n", u.CIN, u.ID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-migrate", false, "Do not apply migrations at startup")

	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateDownCmd.Flags().IntP("steps", "n", 1, "Number of migrations to roll back (0 = all)")
	migrateCmd.AddCommand(migrateVersionCmd)

	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)
	adminCreateCmd.Flags().String("cin", "", "Login CIN")
	adminCreateCmd.Flags().String("password", "", "Initial password")
	adminCreateCmd.Flags().String("name", "Administrateur", "Display name")
	_ = adminCreateCmd.MarkFlagRequired("cin")
	_ = adminCreateCmd.MarkFlagRequired("password")
}
