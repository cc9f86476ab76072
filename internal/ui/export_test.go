package ui

var (
	RenderLocation    = renderLocation
	RenderCheckStatus = renderCheckStatus
)
