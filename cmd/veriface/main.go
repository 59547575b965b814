// Command veriface enrolls face images into per-identity galleries and
// verifies probe images against them.
package main

func main() {
	Execute()
}
