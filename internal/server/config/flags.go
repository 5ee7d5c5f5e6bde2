package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/passgate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g., ":8080")
//	-g string      gRPC health bind address, empty disables
//	-m string      mount path (e.g., "/auth")
//	-d string      PostgreSQL DSN; switches the directory to postgres
//	-r string      Redis address; switches sessions to redis
//	-l string      log level
//	-base string   base URL used for provider callbacks
//	-local         allow username/password login
//	-twitter       allow Twitter login
//	-facebook      allow Facebook login
//
// Only the flags above are looked at (see flagx.FilterArgs), so other
// components may define their own.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-m", "-d", "-r", "-l", "-base", "-local", "-twitter", "-facebook",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to run gRPC health server")
	fs.StringVar(&config.MountPath, "m", config.MountPath, "mount path of the auth resource")
	dsn := fs.String("d", "", "database DSN")
	redisAddr := fs.String("r", "", "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.BaseURL, "base", config.BaseURL, "base URL for OAuth callbacks")
	fs.BoolVar(&config.AllowLocal, "local", config.AllowLocal, "allow local login")
	fs.BoolVar(&config.AllowTwitter, "twitter", config.AllowTwitter, "allow Twitter login")
	fs.BoolVar(&config.AllowFacebook, "facebook", config.AllowFacebook, "allow Facebook login")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *dsn != "" {
		config.DatabaseDSN = *dsn
		config.DirectoryBackend = "postgres"
	}
	if *redisAddr != "" {
		config.RedisAddr = *redisAddr
		config.SessionBackend = "redis"
	}
}
