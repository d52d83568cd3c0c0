package main

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/email/mailgun"
	"github.com/willemschots/newsletter/internal/email/postmark"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/newsletter"
	"github.com/willemschots/newsletter/internal/web"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	cookieKeys      []krypto.Key
	viewDir         string
	server          web.ServerConfig
}

type dbConfig struct {
	file           string
	migrate        bool
	encryptionKeys []krypto.Key
	blindIndexKey  krypto.Key
}

type sessionConfig struct {
	store    string
	redisURL string
	ttl      time.Duration
}

type hashConfig struct {
	workers   int
	queueSize int
	params    krypto.Argon2Params
}

type emailConfig struct {
	driver   string
	postmark postmark.Settings
	mailgun  mailgun.Settings
}

// config is the configuration for the server command.
type config struct {
	http        httpConfig
	metricsAddr string
	db          dbConfig
	session     sessionConfig
	hash        hashConfig
	email       emailConfig
	broadcast   newsletter.Config
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 120,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			server: web.ServerConfig{
				SecureCookie: true,
			},
		},
		metricsAddr: ":9091",
		db: dbConfig{
			file:    "newsletter.db",
			migrate: true,
		},
		session: sessionConfig{
			store: "memory",
			ttl:   time.Hour * 12,
		},
		hash: hashConfig{
			params: krypto.DefaultArgon2Params(),
		},
		email: emailConfig{
			driver: "log",
			postmark: postmark.Settings{
				BaseURL:       mustURL("https://api.postmarkapp.com"),
				MessageStream: "broadcast",
				Timeout:       time.Second * 10,
			},
			mailgun: mailgun.Settings{
				BaseURL:  mustURL("https://api.mailgun.net"),
				Username: "api",
				Timeout:  time.Second * 10,
			},
		},
		broadcast: newsletter.Config{
			Concurrency: 4,
			SendTimeout: time.Second * 10,
		},
	}
}

// requiredEnvKeys have no sane default.
var requiredEnvKeys = []string{
	"HTTP_COOKIE_KEYS",
	"HTTP_CSRF_KEY",
	"DB_ENCRYPTION_KEYS",
	"DB_BLIND_INDEX_KEY",
	"EMAIL_FROM",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_COOKIE_KEYS": func(v string, c *config) error {
		keys, err := krypto.ParseKeys(v)
		if err != nil {
			return err
		}

		// gorilla/sessions takes keys in pairs: one to sign, one to encrypt.
		if len(keys)%2 != 0 {
			return fmt.Errorf("expected pairs of keys, got %d keys", len(keys))
		}

		c.http.cookieKeys = keys
		return nil
	},
	"HTTP_CSRF_KEY": func(v string, c *config) error {
		return confKey(v, &c.http.server.CSRFKey)
	},
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.server.SecureCookie)
	},
	"HTTP_VIEW_DIR": func(v string, c *config) error {
		c.http.viewDir = v
		return nil
	},
	"METRICS_ADDR": func(v string, c *config) error {
		c.metricsAddr = v
		return nil
	},
	"DB_FILENAME": func(v string, c *config) error {
		if v == "" {
			return errors.New("filename can't be empty")
		}
		c.db.file = v
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"DB_ENCRYPTION_KEYS": func(v string, c *config) error {
		keys, err := krypto.ParseKeys(v)
		if err != nil {
			return err
		}

		c.db.encryptionKeys = keys
		return nil
	},
	"DB_BLIND_INDEX_KEY": func(v string, c *config) error {
		return confKey(v, &c.db.blindIndexKey)
	},
	"SESSION_STORE": func(v string, c *config) error {
		switch v {
		case "memory", "redis":
			c.session.store = v
			return nil
		default:
			return fmt.Errorf("unknown session store %q", v)
		}
	},
	"REDIS_URL": func(v string, c *config) error {
		c.session.redisURL = v
		return nil
	},
	"SESSION_TTL": func(v string, c *config) error {
		return confDuration(v, &c.session.ttl, time.Minute, math.MaxInt64)
	},
	"HASH_WORKERS": func(v string, c *config) error {
		return confInt(v, &c.hash.workers, 1, 1024)
	},
	"HASH_QUEUE": func(v string, c *config) error {
		return confInt(v, &c.hash.queueSize, 1, 1<<16)
	},
	"HASH_MEMORY_KIB": func(v string, c *config) error {
		var n int
		if err := confInt(v, &n, 8, krypto.MaxArgon2MemoryKiB); err != nil {
			return err
		}
		c.hash.params.MemoryKiB = uint32(n)
		return nil
	},
	"HASH_ITERATIONS": func(v string, c *config) error {
		var n int
		if err := confInt(v, &n, 1, krypto.MaxArgon2Iterations); err != nil {
			return err
		}
		c.hash.params.Iterations = uint32(n)
		return nil
	},
	"HASH_PARALLELISM": func(v string, c *config) error {
		var n int
		if err := confInt(v, &n, 1, math.MaxUint8); err != nil {
			return err
		}
		c.hash.params.Parallelism = uint8(n)
		return nil
	},
	"EMAIL_DRIVER": func(v string, c *config) error {
		switch v {
		case "log", "postmark", "mailgun":
			c.email.driver = v
			return nil
		default:
			return fmt.Errorf("unknown email driver %q", v)
		}
	},
	"EMAIL_FROM": func(v string, c *config) error {
		addr, err := email.ParseAddress(v)
		if err != nil {
			return err
		}

		c.broadcast.From = addr
		return nil
	},
	"EMAIL_TIMEOUT": func(v string, c *config) error {
		var dur time.Duration
		err := confDuration(v, &dur, time.Millisecond, math.MaxInt64)
		if err != nil {
			return err
		}

		c.broadcast.SendTimeout = dur
		c.email.postmark.Timeout = dur
		c.email.mailgun.Timeout = dur
		return nil
	},
	"POSTMARK_API_URL": func(v string, c *config) error {
		return confURL(v, &c.email.postmark.BaseURL)
	},
	"POSTMARK_SERVER_TOKEN": func(v string, c *config) error {
		c.email.postmark.ServerToken = krypto.NewSecret(v)
		return nil
	},
	"POSTMARK_MESSAGE_STREAM": func(v string, c *config) error {
		c.email.postmark.MessageStream = v
		return nil
	},
	"MAILGUN_API_URL": func(v string, c *config) error {
		return confURL(v, &c.email.mailgun.BaseURL)
	},
	"MAILGUN_DOMAIN": func(v string, c *config) error {
		c.email.mailgun.Domain = v
		return nil
	},
	"MAILGUN_API_KEY": func(v string, c *config) error {
		c.email.mailgun.Password = krypto.NewSecret(v)
		return nil
	},
	"BROADCAST_CONCURRENCY": func(v string, c *config) error {
		return confInt(v, &c.broadcast.Concurrency, 1, 256)
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
//
// All problems are reported at once.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error
	for _, key := range requiredEnvKeys {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing required env variable %s", key))
		}
	}

	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			if err := envMap[key](val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confInt(v string, tgt *int, min, max int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	if n < min || n > max {
		return fmt.Errorf("%d not in range [%d, %d] (inclusive)", n, min, max)
	}

	*tgt = n

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}

func confKey(v string, tgt *krypto.Key) error {
	k, err := krypto.ParseKey(v)
	if err != nil {
		return err
	}

	*tgt = k

	return nil
}

// confURL only accepts absolute URLs.
func confURL(v string, tgt **url.URL) error {
	u, err := url.Parse(v)
	if err != nil {
		return err
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", v)
	}

	*tgt = u

	return nil
}

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
