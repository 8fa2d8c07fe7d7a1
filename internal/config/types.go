package config

// Config is the root configuration for bakebot.
type Config struct {
	Backend  BackendConfig  `yaml:"backend,omitempty"`
	Widget   WidgetConfig   `yaml:"widget,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Channels ChannelsConfig `yaml:"channels,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// Endpoint keys understood by the transport. Each maps to a backend path.
const (
	EndpointChat         = "chat"
	EndpointModifyRecipe = "modify_recipe"
	EndpointPairings     = "pairings"
	EndpointUploadRecipe = "upload_recipe"
	EndpointFormatRecipe = "format_recipe"
	EndpointUploadFiles  = "upload_files"
	EndpointStatus       = "status"
	EndpointClearHistory = "clear_history"
	EndpointCreateRecipe = "create_recipe"
	EndpointInitChat     = "init_chat"
)

// BackendConfig points the widget at the chat/recipe backend.
type BackendConfig struct {
	BaseURL        string            `yaml:"baseUrl,omitempty"`
	TimeoutSeconds int               `yaml:"timeoutSeconds,omitempty"`
	APIKey         string            `yaml:"apiKey,omitempty"` // sent as a bearer token when set
	Endpoints      map[string]string `yaml:"endpoints,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
}

// WidgetConfig controls per-page widget behavior.
type WidgetConfig struct {
	BotName           string `yaml:"botName,omitempty"`
	ChefStyle         string `yaml:"chefStyle,omitempty"` // backend value or UI label
	Greeting          string `yaml:"greeting,omitempty"`
	ErrorResetSeconds int    `yaml:"errorResetSeconds,omitempty"`
	SaveTrigger       string `yaml:"saveTrigger,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	TLS            GatewayTLS  `yaml:"tls,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "none" | "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// ChannelsConfig defines chat bridges.
type ChannelsConfig struct {
	IRC *IRCConfig `yaml:"irc,omitempty"`
}

// IRCConfig defines IRC bridge settings.
type IRCConfig struct {
	Server    string   `yaml:"server"`
	Port      int      `yaml:"port,omitempty"`
	Nick      string   `yaml:"nick"`
	Password  string   `yaml:"password,omitempty"`
	Channels  []string `yaml:"channels"`
	UseTLS    bool     `yaml:"useTLS,omitempty"`
	SASL      bool     `yaml:"sasl,omitempty"`
	OpOnly    bool     `yaml:"opOnly,omitempty"`
	Owner     string   `yaml:"owner,omitempty"` // only accept messages from this nick when set
	Scope     string   `yaml:"scope,omitempty"` // "per-sender" | "global"
	ChefStyle string   `yaml:"chefStyle,omitempty"`
}

// StoreConfig selects where sessions, transcripts and recipes are kept.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
