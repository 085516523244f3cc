package repository

import "fmt"

const emailIndexKey = "h:emails"

func userKey(username string) string {
	return fmt.Sprintf("u:%s:info", username)
}

func collectionListKey(owner string) string {
	return fmt.Sprintf("u:%s:colls", owner)
}

func collectionKey(owner, id string) string {
	return fmt.Sprintf("c:%s:%s:info", owner, id)
}

func sessionIndexKey(username string) string {
	return fmt.Sprintf("u:%s:sessions", username)
}

func sessionKey(id string) string {
	return fmt.Sprintf("s:%s", id)
}

func registrationKey(code string) string {
	return fmt.Sprintf("reg:%s", code)
}
