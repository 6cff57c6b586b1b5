package config

// GetPort returns the port the gateway listens on
func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}
