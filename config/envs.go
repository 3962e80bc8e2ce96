package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default deadlines used when the environment does not override them.
const (
	defaultPlacementTimeout  = 100_000 // ms
	defaultTurnTimeout       = 40_000  // ms
	defaultInactivityTimeout = 600_000 // ms
	defaultOutboundBuffer    = 64
)

// Config holds the application's configuration values.
type Config struct {
	HostIP   string // Interface both listeners bind to
	GrpcPort int    // Port for the gRPC stream transport
	WsPort   int    // Port for the WebSocket transport and /metrics

	PlacementTimeout  time.Duration // Budget for both players to submit a board
	TurnTimeout       time.Duration // Budget for a single turn
	InactivityTimeout time.Duration // Silence allowed before a session is dropped

	OutboundBufferSize  int               // Queued outbound messages per session before it is considered stuck
	SpectatorsByDefault bool              // Whether games accept watchers when the accept command omits visibility
	SeedUsers           map[string]string // name -> password accounts created at startup
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	return Config{
		HostIP:   mustGetEnv("HOST_IP"),
		GrpcPort: mustGetEnvAsInt("GRPC_PORT"),
		WsPort:   mustGetEnvAsInt("WS_PORT"),

		PlacementTimeout:  getEnvAsMillis("PLACEMENT_TIMEOUT_MS", defaultPlacementTimeout),
		TurnTimeout:       getEnvAsMillis("TURN_TIMEOUT_MS", defaultTurnTimeout),
		InactivityTimeout: getEnvAsMillis("INACTIVITY_TIMEOUT_MS", defaultInactivityTimeout),

		OutboundBufferSize:  getEnvAsInt("OUTBOUND_BUFFER_SIZE", defaultOutboundBuffer),
		SpectatorsByDefault: getEnvAsBool("SPECTATORS_BY_DEFAULT", true),
		SeedUsers:           parseUsers(os.Getenv("SEED_USERS")),
	}
}

// mustGetEnv retrieves the value of an environment variable or logs a fatal error if not set.
func mustGetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Fatalf("%s[APP]%s %s[FATAL]%s Environment variable %s is not set", ColorGreen, ColorReset, ColorRed, ColorReset, key)
	}
	return value
}

// mustGetEnvAsInt retrieves the value of an environment variable as an integer or logs a fatal error if not set or cannot be parsed.
func mustGetEnvAsInt(key string) int {
	valueStr := mustGetEnv(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

func getEnvAsMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Millisecond
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be a boolean: %v", key, err)
	}
	return value
}

// parseUsers reads "name:password,name:password". Malformed pairs are skipped.
func parseUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" || password == "" {
			continue
		}
		users[name] = password
	}
	return users
}
