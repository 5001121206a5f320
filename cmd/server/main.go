// Package main is the entry point for the student benefits backend.
//
// Its job is deliberately small:
//  1. Load configuration (a local .env if present, then the environment)
//  2. Create the logger
//  3. Fail hard on missing secrets — a server with no JWT secret or OAuth
//     credentials must refuse to start rather than degrade silently
//  4. Hand everything to internal/server and block until shutdown
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/studenthub/backend/internal/server"
)

func main() {
	// .env is a development convenience; in production the environment is
	// set by the process manager and the file simply doesn't exist.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/studenthub.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Required secrets. JWT_SECRET should be long random data:
	//   JWT_SECRET=$(openssl rand -hex 32)
	jwtSecret := mustEnv(logger, "JWT_SECRET")
	githubClientID := mustEnv(logger, "GITHUB_CLIENT_ID")
	githubClientSecret := mustEnv(logger, "GITHUB_CLIENT_SECRET")

	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GitHubClientID:     githubClientID,
		GitHubClientSecret: githubClientSecret,
		GitHubCallbackURL:  githubCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// mustEnv reads a required environment variable, exiting when it is unset.
func mustEnv(logger *slog.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Error("required environment variable not set", slog.String("key", key))
		os.Exit(1)
	}
	return v
}
