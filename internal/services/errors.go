package services

import "errors"

var (
	ErrLicenseNotFound      = errors.New("license not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidStatus        = errors.New("invalid subscription status")
	ErrKeyCollision         = errors.New("could not generate a unique license key")
)
