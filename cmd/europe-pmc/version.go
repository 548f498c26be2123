package main

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=0.3.0" ./cmd/europe-pmc
var version = "dev"
