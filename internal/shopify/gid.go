package shopify

import "strings"

// DisplayID returns the numeric suffix of a global id such as
// gid://shopify/Order/998765. It is for display only and must never be used
// to build a request. Input without a separator is returned unchanged.
func DisplayID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}
