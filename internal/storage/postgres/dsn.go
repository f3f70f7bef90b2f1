package postgres

import (
	"net"
	"net/url"
	"strconv"

	"github.com/tacticboard/projects-api/config"
)

// DSN renders cfg as a lib/pq connection URL; credentials are escaped.
func DSN(cfg *config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("connect_timeout", "5")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
