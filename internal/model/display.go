package model

import "strconv"

// FormatCompact renders a count the way the site badge shows it: plain digits
// under a thousand, then whole or half thousands with a trailing "K+".
func FormatCompact(count uint64) string {
	if count < 1000 {
		return strconv.FormatUint(count, 10)
	}

	thousands := count / 1000
	if count%1000 >= 500 {
		return strconv.FormatUint(thousands, 10) + ".5K+"
	}
	return strconv.FormatUint(thousands, 10) + "K+"
}
