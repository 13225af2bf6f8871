// Command topic2manim runs the video generation server and talks to it.
//
// `topic2manim serve` starts the HTTP API and the background workflow. The
// remaining commands (generate, status, jobs, health) are thin clients of
// that API, while deps and config operate on the local machine only.
package main
