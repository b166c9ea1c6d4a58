/*
Plyfinserver starts a plyfin grammar server and begins listening for new
connections.

Usage:

	plyfinserver [flags]
	plyfinserver [flags] -l [[ADDRESS]:PORT]

Once started, the server will listen for HTTP requests and respond to them using
REST protocol. By default, it will listen on localhost:8080. This can be changed
with the --listen/-l flag (or config via environment var). The flag argument
must be either a full address with port, such as "192.168.0.2:6001", or just the
port preceeded by a colon, such as ":6001".

If a JWT token secret is not given, a random one is generated. As a
consequence, all tokens are rendered invalid as soon as the server shuts down.
This is suitable for testing, but a secret must be given via either CLI flags or
environment variable if running in production.

The flags are:

	-v, --version
		Give the current version of the plyfin server and then exit.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment variable
		PLYFIN_LISTEN_ADDRESS, and if that is not given, will default to
		localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is. The maximum
		size is 64 bytes. If not given, will default to the value of environment
		variable PLYFIN_TOKEN_SECRET. If no secret is specified, a random secret
		is generated.

	-c, --config FILE
		Read settings from the given TOML file. Flags and environment variables
		override the settings in it. See server.File for the keys.

	--db ENGINE[:PARAMS]
		Keep users and grammars in the given storage. ENGINE must be one of the
		following: inmem, sqlite. inmem has no further params. sqlite needs the
		path to the data directory such as sqlite:path/to/db_dir. If not given,
		will default to the value of environment variable PLYFIN_DATABASE, and
		if that is not given, in-memory storage is used.

	--cache FILE
		Cache compiled grammars in the given SQLite file. If not given, sqlite
		storage caches them in compiled.db in its data directory and in-memory
		storage caches them in memory.

	--admin PASSWORD
		Give the "admin" user this password, creating the user if needed. If
		not given, will default to the value of environment variable
		PLYFIN_ADMIN_PASSWORD. If neither is set and the admin user does not
		exist yet, a random password is generated and logged.

	--debug
		Log at debug level.
*/
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/dekarrin/plyfin/internal/version"
	"github.com/dekarrin/plyfin/server"
)

const (
	EnvListen = "PLYFIN_LISTEN_ADDRESS"
	EnvSecret = "PLYFIN_TOKEN_SECRET"
	EnvDB     = "PLYFIN_DATABASE"
	EnvAdmin  = "PLYFIN_ADMIN_PASSWORD"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitInitError
	ExitServeError
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of the plyfin server and then exit.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagConfig  = pflag.StringP("config", "c", "", "Read settings from the given TOML file.")
	flagDB      = pflag.String("db", "", "Keep users and grammars in the given storage.")
	flagCache   = pflag.String("cache", "", "Cache compiled grammars in the given SQLite file.")
	flagAdmin   = pflag.String("admin", "", "Set the password of the admin user.")
	flagDebug   = pflag.Bool("debug", false, "Log at debug level.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s (plyfin v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *flagDebug {
		log.SetLevel(logrus.DebugLevel)
	}

	if len(pflag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(ExitUsageError)
	}

	var file server.File
	if *flagConfig != "" {
		var err error
		file, err = server.LoadFile(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err.Error())
			os.Exit(ExitUsageError)
		}
	}

	cfg, listenAddr, err := buildConfig(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err.Error())
		os.Exit(ExitUsageError)
	}

	if cfg.TokenSecret == nil {
		cfg.TokenSecret = make([]byte, server.MaxSecretSize)
		if _, err := rand.Read(cfg.TokenSecret); err != nil {
			log.WithError(err).Fatal("could not generate token secret")
		}
		log.Warn("using generated token secret; all tokens issued will become invalid at shutdown")
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("could not start server")
		os.Exit(ExitInitError)
	}
	defer srv.Close()
	log.Debug("server initialized")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("shutdown did not finish cleanly")
		}
	}()

	log.Infof("starting plyfin server %s", version.ServerCurrent)
	if err := srv.ServeForever(listenAddr); err != nil {
		log.WithError(err).Error("server stopped")
		srv.Close()
		os.Exit(ExitServeError)
	}
}

// buildConfig gives the server config and listen address from file with flags
// and environment variables laid over it.
func buildConfig(file server.File) (server.Config, string, error) {
	cfg, err := file.Config()
	if err != nil {
		return server.Config{}, "", err
	}

	listenAddr := file.Listen
	if v := flagOrEnv("listen", *flagListen, EnvListen); v != "" {
		listenAddr = v
	}
	if listenAddr != "" && !strings.Contains(listenAddr, ":") {
		return server.Config{}, "", fmt.Errorf("listen address is not in ADDRESS:PORT or :PORT format")
	}

	if v := flagOrEnv("db", *flagDB, EnvDB); v != "" {
		st, err := server.ParseStorage(v)
		if err != nil {
			return server.Config{}, "", err
		}
		cfg.Storage = st
	}
	if pflag.Lookup("cache").Changed {
		cfg.CachePath = *flagCache
	}
	if v := flagOrEnv("admin", *flagAdmin, EnvAdmin); v != "" {
		cfg.AdminPassword = v
	}

	secret := file.Secret
	if v := flagOrEnv("secret", *flagSecret, EnvSecret); v != "" {
		secret = v
	}
	cfg.TokenSecret, err = tokenSecret(secret)
	if err != nil {
		return server.Config{}, "", err
	}

	return cfg, listenAddr, nil
}

// flagOrEnv gives the value of the named flag if it was set on the command
// line, otherwise the value of the environment variable.
func flagOrEnv(name, flagVal, env string) string {
	if pflag.Lookup(name).Changed {
		return flagVal
	}
	return os.Getenv(env)
}

// tokenSecret repeats s until it is at least server.MinSecretSize bytes. It
// returns nil if s is empty.
func tokenSecret(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}

	tokSecret := []byte(s)
	for len(tokSecret) < server.MinSecretSize {
		tokSecret = append(tokSecret, tokSecret...)
	}

	if len(tokSecret) > server.MaxSecretSize {
		// keys would be chopped at 64, so rather than the user thinking
		// they have more security by giving a longer key, refuse to start.
		return nil, fmt.Errorf("token secret is %d bytes, but it must be <= %d bytes", len(tokSecret), server.MaxSecretSize)
	}

	return tokSecret, nil
}
