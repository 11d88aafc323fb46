package apitest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

const widgetMaxAge = 24 * time.Hour

// SignWidget fills AuthDate (when zero) and Hash so that p passes the
// server's widget check.
func (s *Server) SignWidget(p models.WidgetPayload) models.WidgetPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.AuthDate == 0 {
		p.AuthDate = s.now().Unix()
	}
	p.Hash = widgetHash(p)
	return p
}

func (s *Server) verifyWidgetLocked(p models.WidgetPayload) bool {
	if p.ID == 0 || p.Hash == "" {
		return false
	}
	if s.now().Sub(time.Unix(p.AuthDate, 0)) > widgetMaxAge {
		return false
	}
	return hmac.Equal([]byte(widgetHash(p)), []byte(strings.ToLower(p.Hash)))
}

// widgetHash is hex(HMAC-SHA256(data-check-string, SHA256(bot token))),
// where the data-check-string is the sorted "key=value" lines of every
// non-empty field except the hash.
func widgetHash(p models.WidgetPayload) string {
	fields := map[string]string{
		"id":         strconv.FormatInt(p.ID, 10),
		"auth_date":  strconv.FormatInt(p.AuthDate, 10),
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"username":   p.Username,
		"photo_url":  p.PhotoURL,
	}

	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			lines = append(lines, k+"="+v)
		}
	}
	sort.Strings(lines)

	secret := sha256.Sum256([]byte(BotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
