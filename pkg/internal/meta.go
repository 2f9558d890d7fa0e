package pkg

const (
	AppName    = "Nocturne"
	AppVersion = "1.0.0"
)
