package cfg

type Cfg struct {
	// Storage configuration
	DataDir    string
	TenantsDir string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Sync behavior
	FetchCacheTTL int
	HTTPTimeout   int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
