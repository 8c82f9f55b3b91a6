package handlers

import "time"

const requestTimeout = 5 * time.Second
