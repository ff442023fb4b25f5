package storage

// Config - ...
type Config struct {
	DSN string
}
