// Command magpie-host receives recordings streamed from a Magpie recorder
// over USB, and can run the recorder firmware against a simulated board.
package main

func main() {
	Execute()
}
