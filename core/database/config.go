package database

// Config holds configuration for the local replica database.
type Config struct {
	// Driver is the database driver (sqlite, mysql). sqlite is the embedded
	// default; mysql serves deployments sharing one replica across
	// processes.
	Driver string `mapstructure:"driver" default:"sqlite"`

	// Path is the SQLite database file (":memory:" for tests).
	Path string `mapstructure:"path" default:"shapesync.db"`

	// Host is the MySQL host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the MySQL port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the MySQL user.
	User string `mapstructure:"user" default:"root"`
	// Password is the MySQL password.
	Password string `mapstructure:"password" default:""`
	// Name is the MySQL database name.
	Name string `mapstructure:"name" default:"shapesync"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
