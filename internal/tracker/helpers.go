package tracker

import "time"

func nowUnix() int64 {
	return time.Now().UTC().Unix()
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
