package redis

import (
	"testing"
	"time"

	"github.com/sifan077/FlexQR/config"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{})
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "flexqr", opts.ClientName)
	assert.Equal(t, 200*time.Millisecond, opts.ReadTimeout)

	opts = Options(config.RedisConfig{Host: "cache", Port: 6380, DB: 2, Password: "pw"})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}
