// lclock runs and analyzes Lamport logical-clock simulations.
package main

func main() {
	Execute()
}
