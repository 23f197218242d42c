// Package domain holds the validated value objects of the newsletter service.
//
// Values are only obtainable through the Parse functions, so anything typed
// SubscriberEmail or SubscriberName has already passed validation.
package domain
