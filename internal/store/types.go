package store

// SubscribedDevice is one row of a fan-out page: the subscription that
// put the device in the channel plus everything needed to push to it.
type SubscribedDevice struct {
	SubscriptionID int64
	DeviceID       int64
	Endpoint       string
	P256DH         string
	Auth           string
}
