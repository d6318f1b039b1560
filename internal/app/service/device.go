package service

import (
	"strings"

	"github.com/sifan077/FlexQR/internal/app/model"
)

// ClassifyDevice buckets a user agent by substring. Mobile markers win over
// desktop ones because Android agents also mention Linux.
func ClassifyDevice(userAgent string) model.DeviceClass {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return model.DeviceMobile
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "windows"), strings.Contains(ua, "linux"):
		return model.DeviceDesktop
	default:
		return model.DeviceOther
	}
}
