package main

// trapSigInfo is a no-op, there is no SIGINFO on Windows.
func trapSigInfo() {}
