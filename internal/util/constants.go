package util

const (
	ServerModeDebug   = "debug"
	ServerModeRelease = "release"
)

const ContentTypeText = "text/plain; charset=utf-8"
