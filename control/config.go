// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed run configuration. Flags win over the environment, the environment
// wins over launcher variables, and launcher variables win over defaults.

package control

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/internal/concurrency"
)

// Environment variables read by Resolve.
const (
	EnvRank           = "PLACEMENT_RANK"
	EnvSize           = "PLACEMENT_SIZE"
	EnvCoordinator    = "PLACEMENT_COORDINATOR"
	EnvListen         = "PLACEMENT_LISTEN"
	EnvJobID          = "PLACEMENT_JOB_ID"
	EnvFormat         = "PLACEMENT_FORMAT"
	EnvLogLevel       = "PLACEMENT_LOG_LEVEL"
	EnvConnectTimeout = "PLACEMENT_CONNECT_TIMEOUT"

	// DefaultWorkersEnv is the variable the worker count is read from,
	// the same one an OpenMP runtime honours.
	DefaultWorkersEnv = "OMP_NUM_THREADS"
)

// launcher names the rank and size variables one job launcher exports.
type launcher struct {
	name string
	rank string
	size string
}

// launchers are probed in order; the first one exporting both its rank and
// its size wins.
var launchers = []launcher{
	{"env", EnvRank, EnvSize},
	{"openmpi", "OMPI_COMM_WORLD_RANK", "OMPI_COMM_WORLD_SIZE"},
	{"pmix", "PMIX_RANK", "OMPI_COMM_WORLD_SIZE"},
	{"pmi", "PMI_RANK", "PMI_SIZE"},
	{"slurm", "SLURM_PROCID", "SLURM_NTASKS"},
}

// jobIDVars are consulted for the job id when no flag is given.
var jobIDVars = []string{EnvJobID, "SLURM_JOB_ID"}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Config is the resolved configuration of one participant.
type Config struct {
	Rank        int
	Size        int
	Coordinator string
	Listen      string
	JobID       string

	Workers    int
	WorkersEnv string

	Format         string
	LogLevel       string
	ConnectTimeout time.Duration

	// Simulate, when non-empty, runs an in-process job with one participant
	// per entry, each with that many workers.
	Simulate []int

	// Launcher records where rank and size came from, for logging.
	Launcher string
}

// DefaultConfig returns the configuration of a single-participant job.
func DefaultConfig() *Config {
	return &Config{
		Rank:           0,
		Size:           1,
		WorkersEnv:     DefaultWorkersEnv,
		Format:         "text",
		LogLevel:       "warn",
		ConnectTimeout: 30 * time.Second,
		Launcher:       "default",
	}
}

// BindFlags registers the configuration flags on fs, writing into c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Rank, "rank", c.Rank, "rank of this participant (env "+EnvRank+" or launcher)")
	fs.IntVar(&c.Size, "size", c.Size, "number of participants (env "+EnvSize+" or launcher)")
	fs.StringVar(&c.Coordinator, "coordinator", c.Coordinator, "host:port of rank 0 (env "+EnvCoordinator+")")
	fs.StringVar(&c.Listen, "listen", c.Listen, "address rank 0 binds, defaults to --coordinator (env "+EnvListen+")")
	fs.StringVar(&c.JobID, "job-id", c.JobID, "job identifier all participants must share (env "+EnvJobID+", SLURM_JOB_ID)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "workers per participant, overrides --workers-env")
	fs.StringVar(&c.WorkersEnv, "workers-env", c.WorkersEnv, "environment variable holding the worker count")
	fs.StringVar(&c.Format, "format", c.Format, "report format: text, json or yaml (env "+EnvFormat+")")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error (env "+EnvLogLevel+")")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "how long to wait for the coordinator to listen (env "+EnvConnectTimeout+")")
	fs.IntSliceVar(&c.Simulate, "simulate", c.Simulate, "run an in-process job with these worker counts, e.g. 2,3")
}

// Resolve fills every setting not given on the command line from lookup,
// then validates the result. A nil lookup reads the process environment.
func (c *Config) Resolve(fs *pflag.FlagSet, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(name string) bool { return fs != nil && fs.Changed(name) }

	if err := c.resolveTopology(set, lookup); err != nil {
		return err
	}
	strs := []struct {
		flag string
		dst  *string
		vars []string
	}{
		{"coordinator", &c.Coordinator, []string{EnvCoordinator}},
		{"listen", &c.Listen, []string{EnvListen}},
		{"job-id", &c.JobID, jobIDVars},
		{"format", &c.Format, []string{EnvFormat}},
		{"log-level", &c.LogLevel, []string{EnvLogLevel}},
	}
	for _, s := range strs {
		if set(s.flag) {
			continue
		}
		for _, key := range s.vars {
			if v, ok := lookup(key); ok && v != "" {
				*s.dst = v
				break
			}
		}
	}
	if !set("connect-timeout") {
		if v, ok := lookup(EnvConnectTimeout); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return configError("invalid connect timeout", err).WithContext("env", EnvConnectTimeout)
			}
			c.ConnectTimeout = d
		}
	}
	if !set("workers") && len(c.Simulate) == 0 {
		n, err := WorkersFromEnv(c.WorkersEnv, lookup)
		if err != nil {
			return err
		}
		c.Workers = n
	}
	return c.Validate()
}

func (c *Config) resolveTopology(set func(string) bool, lookup LookupFunc) error {
	// A launcher counts only when it exports both variables; some set a rank
	// for one layer (PMIx under srun) while another layer carries the size.
	var chosen, partial *launcher
	for i := range launchers {
		l := &launchers[i]
		if _, ok := lookup(l.rank); !ok {
			continue
		}
		if _, ok := lookup(l.size); ok {
			chosen = l
			break
		}
		if partial == nil {
			partial = l
		}
	}
	if chosen == nil && partial != nil {
		if !set("size") {
			return api.NewError(api.ErrCodeConfig, "launcher exports a rank but no size").
				WithContext("rank_env", partial.rank).WithContext("size_env", partial.size)
		}
		chosen = partial
	}
	if chosen != nil {
		c.Launcher = chosen.name
	}
	if set("rank") || set("size") {
		c.Launcher = "flags"
	}
	if chosen == nil {
		return nil
	}
	if !set("rank") {
		n, err := envInt(lookup, chosen.rank)
		if err != nil {
			return err
		}
		c.Rank = n
	}
	if !set("size") {
		n, err := envInt(lookup, chosen.size)
		if err != nil {
			return err
		}
		c.Size = n
	}
	return nil
}

// WorkersFromEnv reads the worker count from key. An unset or empty variable
// means one worker per logical CPU; anything else must be a positive integer.
func WorkersFromEnv(key string, lookup LookupFunc) (int, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return runtime.NumCPU(), nil
	}
	// OpenMP allows a per-level list such as "4,2"; the outer level applies here.
	first, _, _ := strings.Cut(v, ",")
	n, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || n < 1 {
		return 0, configError("worker count must be a positive integer", err).
			WithContext("env", key).WithContext("value", v)
	}
	return n, nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	if len(c.Simulate) > 0 {
		total := 0
		for i, n := range c.Simulate {
			if n < 1 {
				return configError("simulated worker count must be at least 1", nil).
					WithContext("rank", i).WithContext("workers", n)
			}
			total += n
		}
		// Simulated participants all hold their threads at the same time.
		if total > concurrency.MaxWorkers() {
			return configError("simulated job needs more threads than the runtime allows", nil).
				WithContext("workers", total).WithContext("max", concurrency.MaxWorkers())
		}
	} else {
		if c.Size < 1 {
			return configError("job size must be at least 1", nil).WithContext("size", c.Size)
		}
		if c.Rank < 0 || c.Rank >= c.Size {
			return configError("rank out of range", nil).WithContext("rank", c.Rank).WithContext("size", c.Size)
		}
		if c.Size > 1 && c.Coordinator == "" {
			return configError("coordinator address required for a multi-participant job", nil).
				WithContext("size", c.Size)
		}
		if c.Workers < 1 {
			return configError("worker count must be at least 1", nil).WithContext("workers", c.Workers)
		}
		if c.Workers > concurrency.MaxWorkers() {
			return configError("worker count exceeds the runtime thread limit", nil).
				WithContext("workers", c.Workers).WithContext("max", concurrency.MaxWorkers())
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "text", "json", "yaml":
	default:
		return configError("unknown report format", nil).WithContext("format", c.Format)
	}
	if c.ConnectTimeout <= 0 {
		return configError("connect timeout must be positive", nil).WithContext("timeout", c.ConnectTimeout)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, configError("unknown log level", err).WithContext("level", s)
	}
	return l, nil
}

func envInt(lookup LookupFunc, key string) (int, error) {
	v, _ := lookup(key)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, configError("environment variable is not an integer", err).
			WithContext("env", key).WithContext("value", v)
	}
	return n, nil
}

func configError(msg string, cause error) *api.Error {
	if cause == nil {
		cause = api.ErrInvalidArgument
	}
	return api.Wrap(api.ErrCodeConfig, cause, msg)
}
