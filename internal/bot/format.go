package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const refPrefix = "REF_"

func (b *Bot) inviteLink(promoCode string) string {
	return fmt.Sprintf("t.me/%s?start=%s%s", b.botName, refPrefix, promoCode)
}

// parseRefCode strips the deep-link prefix off a /start argument.
func parseRefCode(arg string) (string, bool) {
	if !strings.HasPrefix(arg, refPrefix) {
		return "", false
	}

	code := strings.TrimPrefix(arg, refPrefix)
	if code == "" {
		return "", false
	}

	return code, true
}

// formatAmount renders an integer amount with thousands separators,
// e.g. 1000000 -> "1,000,000".
func formatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var sb strings.Builder

	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}

	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(s[i : i+3])
	}

	if neg {
		return "-" + sb.String()
	}

	return sb.String()
}
