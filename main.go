package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"cryptext/config"
	"cryptext/directory"
	"cryptext/storage"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	fmt.Printf("Install ID:      %s\n", cfg.InstallID)
	fmt.Printf("Display Name:    %s\n", cfg.DisplayName)
	fmt.Printf("Config File:     %s\n", cfgPath)
	dataDir := filepath.Dir(cfgPath)
	fmt.Printf("Data Directory:  %s\n", dataDir)

	store, dbPath, err := storage.Open(dataDir)
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()
	fmt.Printf("Database File:   %s\n", dbPath)

	if cfg.AnnouncePresence {
		if svc, err := startDirectory(cfg, store); err != nil {
			log.Printf("directory startup failed: %v", err)
		} else if svc != nil {
			defer svc.Stop()
			fmt.Println("Directory:       announcing")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Println("Status:          shutting down")
}

// startDirectory announces the signed-in account named by CRYPTEXT_EMAIL.
// Without that env var (or a matching profile) the client stays silent and
// can still resolve other users on demand.
func startDirectory(cfg *config.AppConfig, store *storage.Store) (*directory.Service, error) {
	email := os.Getenv("CRYPTEXT_EMAIL")
	if email == "" {
		return nil, nil
	}

	user, err := store.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no registered account for %q", email)
	}
	if err != nil {
		return nil, err
	}

	port, err := announcePort(cfg)
	if err != nil {
		return nil, err
	}

	return directory.Start(directory.Config{
		SelfUserID:  user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Port:        port,
	})
}

// announcePort returns the port to advertise: the configured one in fixed
// mode, an ephemeral one reserved at launch otherwise.
func announcePort(cfg *config.AppConfig) (int, error) {
	if cfg.PortMode == config.PortModeFixed && cfg.DirectoryPort > 0 {
		return cfg.DirectoryPort, nil
	}
	return directory.AllocatePort()
}
