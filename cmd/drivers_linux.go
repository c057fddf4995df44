/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

// Register the native termios driver alongside the portable one
import _ "github.com/allbin/go-rs232/transport/termios"
