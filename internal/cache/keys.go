package cache

import (
	"fmt"
	"net/url"
	"strings"
)

// webhook:event:{partner}:{uniq_id}:{order_status}
//
// Ключ повторяет уникальный индекс webhook_events, чтобы попадание в кэш
// было эквивалентно конфликту вставки. QueryEscape экранирует ':' внутри
// значений, иначе части ключа могли бы склеиваться.
func EventKey(partnerID, uniqID, orderStatus string) string {
	p := url.QueryEscape(strings.TrimSpace(partnerID))
	u := url.QueryEscape(strings.TrimSpace(uniqID))
	s := url.QueryEscape(strings.ToLower(strings.TrimSpace(orderStatus)))
	return fmt.Sprintf("webhook:event:%s:%s:%s", p, u, s)
}
