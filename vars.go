package main

var appVersion = "0.2.0"

// usage is printed when no URL is given
const usage = "usage: perfview <url> [-provider http|browser] [-json] [-stats] [-concurrency n] [-timeout d] [-no-color] [-v]"
