package model

// BackupFrequency controls how often the reminder scheduler considers a
// backup due.
type BackupFrequency string

const (
	FrequencyDaily   BackupFrequency = "daily"
	FrequencyWeekly  BackupFrequency = "weekly"
	FrequencyMonthly BackupFrequency = "monthly"
)

// Days returns the number of elapsed days after which a backup is due for
// this frequency. Unknown values fall back to weekly.
func (f BackupFrequency) Days() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	default:
		return 7
	}
}

// BackupMethod identifies how a backup result was produced.
type BackupMethod string

const (
	MethodGitHub        BackupMethod = "github"
	MethodLocalDownload BackupMethod = "local_download"
)

// CacheStrategy selects how the offline cache worker serves a request.
type CacheStrategy string

const (
	StrategyNetworkFirst CacheStrategy = "network_first"
	StrategyCacheFirst   CacheStrategy = "cache_first"
	StrategyDefault      CacheStrategy = "default"
)
