// Package gym bridges a charging network simulation engine and an RL
// training loop.
//
// Trained exposes read-only access to a running simulation, including the
// feasibility checks an agent needs to validate a schedule. Training adds Step,
// which advances the engine by one decision epoch only when the schedule is
// acceptable or feasibility is not enforced.
package gym
