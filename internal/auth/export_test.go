package auth

const DummyPasswordHash = dummyPasswordHash
