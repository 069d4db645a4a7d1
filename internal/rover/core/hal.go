package core

// HAL (Hardware Abstraction Layer) is the port between the mission logic and the rover hardware.
// Every accessor is non-blocking; drivers keep the latest reading cached.
type HAL interface {
	// RoverID identifies the airframe on the ground link.
	RoverID() string

	// Sensors returns the sensor accessors.
	Sensors() Sensors

	// Buzzer drives the alert buzzer line.
	Buzzer() Switch

	// RadioSleep drives the XBee sleep request line. On means asleep.
	RadioSleep() Switch

	// Servo drives the separation servo.
	Servo() PWM

	// Motors drives the two wheel motors.
	Motors() Motors

	// Close releases the hardware and leaves every output off.
	Close() error
}

// Sensors exposes the latest reading of every sensor.
type Sensors interface {
	// Position returns the last GPS fix. ok is false while there is no fix.
	Position() (fix Fix, ok bool)

	// Attitude returns the gyro-integrated attitude in degrees.
	Attitude() Attitude

	// AngularRate returns the gyro angular rate in degrees per second.
	AngularRate() Vector3

	// Pressure returns the barometric pressure in hPa.
	Pressure() float64

	// Light reports whether the light sensor sees light.
	Light() bool

	// Pulses returns the cumulative encoder counts of the left and right wheels.
	Pulses() (left, right uint64)

	// Frame returns the latest camera frame, or nil when the camera is unavailable.
	Frame() *Frame
}

// Switch is a digital output.
type Switch interface {
	Set(on bool)
}

// PWM is a pulse-width output. A duty of zero stops the signal.
type PWM interface {
	Write(duty float64)
}

// Motors drives the differential wheel pair. Powers are in [-1, 1]; negative is backward.
type Motors interface {
	Drive(left, right float64)
}
