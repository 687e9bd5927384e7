// veilfs is the command-line front end for managing encrypted volume
// headers and inspecting the name encryption.
package main

func main() {
	Execute()
}
