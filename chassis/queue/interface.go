package queue

// Config - unified configuration for queue service
type Config struct {
	Name string
	URL  string

	//AWS specified
	Region             string
	CredentialsFile    string
	CredentialsProfile string
	Retries            int
}

// Client publishes messages to a queue (SQS based)
type Client interface {
	SendMessage(message string) error
}
