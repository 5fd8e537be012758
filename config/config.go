package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const searchBaseURL = "https://www.rentalcars.com/search-results"

// DateLayout is the wire format for pickup/dropoff dates.
const DateLayout = "2006-01-02"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LocationName string
	LocationIata string
	Coordinates  string
	DriversAge   int

	PickupDate    string // YYYY-MM-DD
	PickupTime    string // HH:MM
	DropoffDate   string
	DropoffTime   string
	Transmission  string
	CarCategory   string

	CheapPercentile float64
	HistoryLimit    int

	StoreBackend string // sqlite | postgres | redis

	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	CSVOutputPath string
	WatchCron     string

	MaxRetries      int
	RenderTimeoutMs int
	RenderWaitMs    int
	ChromeBin       string

	DesktopNotify bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		LocationName: getEnv("LOCATION_NAME", "Alicante Airport"),
		LocationIata: getEnv("LOCATION_IATA", "ALC"),
		Coordinates:  getEnv("LOCATION_COORDINATES", "38.2822,-0.5582"),
		DriversAge:   getEnvInt("DRIVERS_AGE", 35),

		PickupDate:   getEnv("PICKUP_DATE", "2026-09-15"),
		PickupTime:   getEnv("PICKUP_TIME", "10:00"),
		DropoffDate:  getEnv("DROPOFF_DATE", "2026-09-22"),
		DropoffTime:  getEnv("DROPOFF_TIME", "10:00"),
		Transmission: getEnv("TRANSMISSION", "Automatic"),
		CarCategory:  getEnv("CAR_CATEGORY", "small"),

		CheapPercentile: getEnvFloat("CHEAP_PERCENTILE", 0.25),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 500),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/prices.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "watcher"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "watcher123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_prices"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "rentalcars:runs"),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/observations.csv"),
		WatchCron:     getEnv("WATCH_CRON", "0 8 * * *"),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		RenderTimeoutMs: getEnvInt("RENDER_TIMEOUT_MS", 60000),
		RenderWaitMs:    getEnvInt("RENDER_WAIT_MS", 12000),
		ChromeBin:       getEnv("CHROME_BIN", ""),

		DesktopNotify: getEnvBool("DESKTOP_NOTIFY", true),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RentalDays derives the rental duration from the configured date range.
// Never less than 1, so a same-day rental still divides cleanly.
func (c *Config) RentalDays() int {
	pickup, err1 := time.Parse(DateLayout, c.PickupDate)
	dropoff, err2 := time.Parse(DateLayout, c.DropoffDate)
	if err1 != nil || err2 != nil {
		return 1
	}
	days := int(dropoff.Sub(pickup).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// SearchURL builds the rentalcars.com search-results URL for the configured
// location, date range and filters.
func (c *Config) SearchURL() string {
	puHour, puMinute := splitTime(c.PickupTime)
	doHour, doMinute := splitTime(c.DropoffTime)
	puYear, puMonth, puDay := splitDate(c.PickupDate)
	doYear, doMonth, doDay := splitDate(c.DropoffDate)

	params := url.Values{}
	params.Set("location", "")
	params.Set("dropLocation", "")
	params.Set("locationName", c.LocationName)
	params.Set("locationIata", c.LocationIata)
	params.Set("dropLocationName", c.LocationName)
	params.Set("dropLocationIata", c.LocationIata)
	params.Set("coordinates", c.Coordinates)
	params.Set("dropCoordinates", c.Coordinates)
	params.Set("driversAge", strconv.Itoa(c.DriversAge))
	params.Set("puDay", strconv.Itoa(puDay))
	params.Set("puMonth", strconv.Itoa(puMonth))
	params.Set("puYear", strconv.Itoa(puYear))
	params.Set("puHour", strconv.Itoa(puHour))
	params.Set("puMinute", strconv.Itoa(puMinute))
	params.Set("doDay", strconv.Itoa(doDay))
	params.Set("doMonth", strconv.Itoa(doMonth))
	params.Set("doYear", strconv.Itoa(doYear))
	params.Set("doHour", strconv.Itoa(doHour))
	params.Set("doMinute", strconv.Itoa(doMinute))
	params.Set("ftsType", "A")
	params.Set("dropFtsType", "A")
	params.Set("filterCriteria_transmission", c.Transmission)
	params.Set("filterCriteria_carCategory", c.CarCategory)

	return searchBaseURL + "?" + params.Encode()
}

func splitDate(date string) (year, month, day int) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, 0, 0
	}
	return t.Year(), int(t.Month()), t.Day()
}

func splitTime(hhmm string) (hour, minute int) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 10, 0
	}
	return t.Hour(), t.Minute()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
