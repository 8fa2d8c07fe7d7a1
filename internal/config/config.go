package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultEndpoints maps endpoint keys to the paths the recipe backend serves.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		EndpointChat:         "/get-chef-response",
		EndpointModifyRecipe: "/get_new_recipe",
		EndpointPairings:     "/generate_pairing",
		EndpointUploadRecipe: "/get-chef-response",
		EndpointFormatRecipe: "/format-recipe",
		EndpointUploadFiles:  "/upload-files/",
		EndpointStatus:       "/status_call",
		EndpointClearHistory: "/clear_chat_history",
		EndpointCreateRecipe: "/create_thread_run",
		EndpointInitChat:     "/initialize-general-chat",
	}
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 30,
			Endpoints:      DefaultEndpoints(),
		},
		Widget: WidgetConfig{
			BotName:           "bakebot",
			ChefStyle:         "home_cook",
			Greeting:          "Hi, I'm bakebot! Ask me anything about cooking, or upload a recipe to get started.",
			ErrorResetSeconds: 5,
			SaveTrigger:       "save recipe",
		},
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// Timeout returns the per-request backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// ErrorReset returns how long the widget stays in the error state before
// returning to idle on its own.
func (w WidgetConfig) ErrorReset() time.Duration {
	if w.ErrorResetSeconds <= 0 {
		return 0
	}
	return time.Duration(w.ErrorResetSeconds) * time.Second
}
